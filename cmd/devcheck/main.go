// Command devcheck probes the host integrations whisperclip depends on:
// microphone capture, clipboard round-trip, paste keystroke, and the
// global hotkey. Run it once on a new machine before filing a bug.
//
// Usage:
//
//	go run ./cmd/devcheck [--paste] [--hotkey]
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"

	"github.com/mhersche/whisperclip/internal/audio"
	"github.com/mhersche/whisperclip/internal/deliver"
	"github.com/mhersche/whisperclip/internal/hotkey"
)

func main() {
	tryPaste := flag.Bool("paste", false, "also send a paste keystroke (focus a text editor first)")
	tryHotkey := flag.Bool("hotkey", false, "also listen for Ctrl+Shift+R until Ctrl+C")
	flag.Parse()

	ok := true
	ok = checkMicrophone() && ok
	ok = checkClipboard() && ok

	if *tryPaste {
		ok = checkPaste() && ok
	}
	if *tryHotkey {
		checkHotkey()
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Println("All checks passed.")
}

func checkMicrophone() bool {
	fmt.Print("microphone: ")
	mic, err := audio.NewCapture(16000, 1)
	if err != nil {
		fmt.Printf("FAIL (%v)\n", err)
		return false
	}
	defer mic.Close()

	frames, err := mic.Start()
	if err != nil {
		fmt.Printf("FAIL (%v)\n", err)
		return false
	}

	// Capture half a second and count what arrives.
	time.Sleep(500 * time.Millisecond)
	mic.Stop()
	samples := 0
	for frame := range frames {
		samples += len(frame)
	}
	if samples == 0 {
		fmt.Println("FAIL (device opened but produced no samples)")
		return false
	}
	fmt.Printf("OK (%d samples in 0.5s)\n", samples)
	return true
}

func checkClipboard() bool {
	fmt.Print("clipboard:  ")
	const probe = "whisperclip devcheck"

	previous, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(probe); err != nil {
		fmt.Printf("FAIL (write: %v)\n", err)
		return false
	}
	got, err := clipboard.ReadAll()
	if err != nil {
		fmt.Printf("FAIL (read: %v)\n", err)
		return false
	}
	// Put back whatever was there before the probe.
	_ = clipboard.WriteAll(previous)

	if got != probe {
		fmt.Printf("FAIL (round-trip mismatch: %q)\n", got)
		return false
	}
	fmt.Println("OK")
	return true
}

func checkPaste() bool {
	fmt.Println("paste:      focus a text editor, sending Ctrl/Cmd+V in 3 seconds...")
	for i := 3; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := deliver.New(true, log)
	outcome, err := d.Deliver("Hello from whisperclip!")
	if err != nil {
		fmt.Printf("paste:      FAIL (%v)\n", err)
		return false
	}
	fmt.Printf("paste:      OK (%s)\n", outcome)
	return true
}

func checkHotkey() {
	fmt.Println("hotkey:     listening for Ctrl+Shift+R, press Ctrl+C to stop")

	listener := hotkey.NewListener([]string{"ctrl", "shift", "r"}, "toggle")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		listener.Stop()
	}()

	go func() {
		n := 0
		for range listener.Triggers() {
			n++
			fmt.Printf("hotkey:     trigger %d\n", n)
		}
	}()

	listener.Start()
}
