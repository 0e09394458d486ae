// Package deliver hands a transcript to the focused application: clipboard
// copy first, then a simulated paste keystroke with soft degradation.
package deliver

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
)

// ErrClipboard indicates the clipboard copy itself failed. Unlike paste,
// this is a hard error: without the copy the transcript is lost.
var ErrClipboard = errors.New("deliver: clipboard write failed")

// Outcome describes how the transcript reached the user.
type Outcome int

const (
	// Delivered means clipboard copy and paste simulation both succeeded.
	Delivered Outcome = iota
	// CopiedOnly means the text is on the clipboard but paste simulation
	// failed or was disabled; the user can paste manually.
	CopiedOnly
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case CopiedOnly:
		return "copied-only"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Dispatcher copies text to the clipboard and simulates a paste keystroke.
// copyText and pasteKey are injectable for tests.
type Dispatcher struct {
	pasteEnabled bool
	copyText     func(string) error
	pasteKey     func() error
	log          *slog.Logger
}

// New creates a Dispatcher using the system clipboard and a paste
// keystroke (Cmd+V on darwin, Ctrl+V elsewhere).
func New(pasteEnabled bool, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pasteEnabled: pasteEnabled,
		copyText:     clipboard.WriteAll,
		pasteKey:     pasteKeystroke,
		log:          log,
	}
}

// Deliver copies text to the clipboard and attempts a paste keystroke.
// Clipboard failure is a hard error (ErrClipboard). Paste failure is a
// recoverable outcome: the text stays retrievable from the clipboard, so
// the result is CopiedOnly, not an error.
func (d *Dispatcher) Deliver(text string) (Outcome, error) {
	if err := d.copyText(text); err != nil {
		return CopiedOnly, fmt.Errorf("%v: %w", err, ErrClipboard)
	}

	if !d.pasteEnabled || text == "" {
		return CopiedOnly, nil
	}

	if err := d.pasteKey(); err != nil {
		d.log.Warn("paste simulation failed, transcript remains on clipboard",
			slog.String("error", err.Error()))
		return CopiedOnly, nil
	}

	return Delivered, nil
}

// pasteKeystroke sends the platform paste chord into the focused window.
func pasteKeystroke() error {
	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	if err := robotgo.KeyTap("v", mod); err != nil {
		return fmt.Errorf("key tap %s+v: %w", mod, err)
	}
	return nil
}
