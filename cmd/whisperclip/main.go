package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mhersche/whisperclip/internal/audio"
	"github.com/mhersche/whisperclip/internal/config"
	"github.com/mhersche/whisperclip/internal/deliver"
	"github.com/mhersche/whisperclip/internal/history"
	"github.com/mhersche/whisperclip/internal/hotkey"
	"github.com/mhersche/whisperclip/internal/models"
	"github.com/mhersche/whisperclip/internal/notify"
	"github.com/mhersche/whisperclip/internal/session"
	"github.com/mhersche/whisperclip/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/whisperclip/config.yaml)")
	initConfig := flag.Bool("init-config", false, "write a default config file and exit")
	downloadModel := flag.String("download-model", "", "download a whisper model (e.g. base.en) and exit")
	showHistory := flag.Int("history", 0, "print the N most recent transcripts and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	if *downloadModel != "" {
		if err := models.Download(*downloadModel); err != nil {
			fmt.Fprintf(os.Stderr, "download failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	if *showHistory > 0 {
		if err := printHistory(cfg, *showHistory); err != nil {
			fmt.Fprintf(os.Stderr, "history: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// A local backend with no explicit model path gets the default model,
	// fetched on first run.
	if cfg.Backend == "local" && cfg.ModelPath == "" {
		path, err := models.Ensure(models.DefaultModel)
		if err != nil {
			log.Error("model download failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg.ModelPath = path
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	printBanner(cfg)

	log.Info("loading transcription backend", slog.String("backend", cfg.Backend))
	loadStart := time.Now()
	transcriber, err := transcribe.New(cfg)
	if err != nil {
		log.Error("backend init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer transcriber.Close()
	log.Info("backend ready", slog.Duration("took", time.Since(loadStart).Round(time.Millisecond)))

	capture, err := audio.NewCapture(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		log.Error("audio init failed",
			slog.String("error", err.Error()),
			slog.String("hint", "check that a microphone is available and access is granted"))
		os.Exit(1)
	}
	defer capture.Close()
	log.Info("audio capture ready",
		slog.Uint64("rate", uint64(cfg.Audio.SampleRate)),
		slog.Uint64("channels", uint64(cfg.Audio.Channels)))

	hist, err := history.Open(context.Background(), cfg.History.Path, log)
	if err != nil {
		log.Error("history open failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer hist.Close()

	dispatcher := deliver.New(cfg.Paste.Enabled, log)
	notifier := notify.New(cfg.Notify, log)

	model := ""
	if cfg.Backend == "cloud" {
		model = cfg.Cloud.Model
	}
	mgr := session.NewManager(session.Options{
		Capture:    capture,
		Transcribe: transcriber,
		Deliver:    dispatcher,
		History:    hist,
		Log:        log,
		Model:      model,
	})

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode)
	go listener.Start()
	log.Info("hotkey listener ready",
		slog.String("keys", strings.Join(cfg.Hotkey.Keys, "+")),
		slog.String("mode", cfg.Hotkey.Mode))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Ready! Press %s to dictate. Ctrl+C to quit.\n", strings.Join(cfg.Hotkey.Keys, "+"))

	triggers := listener.Triggers()
	for {
		select {
		case _, ok := <-triggers:
			if !ok {
				log.Info("hotkey listener stopped")
				return
			}
			mgr.Trigger()

		case o := <-mgr.Results():
			if o.Err != nil {
				log.Error("session failed",
					slog.String("session", o.SessionID),
					slog.String("error", o.Err.Error()))
				notifier.Failed(o.Err)
				// The machine stays in Error until acknowledged. This
				// loop is the only observer, so acknowledge right away
				// and let the next hotkey press start fresh.
				mgr.Acknowledge()
				continue
			}
			log.Info("transcribed",
				slog.String("session", o.SessionID),
				slog.String("backend", o.Backend),
				slog.Duration("took", o.Elapsed.Round(time.Millisecond)),
				slog.String("delivery", o.Delivery.String()),
				slog.String("text", o.Text))
			notifier.Done(o.Text)

		case sig := <-sigCh:
			log.Info("shutting down", slog.String("signal", sig.String()))
			mgr.Cancel()
			listener.Stop()
			capture.Close()
			transcriber.Close()
			hist.Close()
			// Exit directly to avoid gohook's C cleanup crash.
			// The OS reclaims the event hook on process exit.
			os.Exit(0)
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	// No config file, use defaults plus environment overrides.
	return config.FromEnv(), nil
}

// printHistory lists the most recent transcripts on stdout.
func printHistory(cfg *config.Config, n int) error {
	hist, err := history.Open(context.Background(), cfg.History.Path, slog.Default())
	if err != nil {
		return err
	}
	defer hist.Close()

	entries, err := hist.Recent(context.Background(), n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  [%s]  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Backend, e.Text)
	}
	return nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== whisperclip ===")
	fmt.Printf("  Backend: %s\n", cfg.Backend)
	if cfg.Backend == "local" {
		fmt.Printf("  Model:   %s\n", cfg.ModelPath)
	} else {
		fmt.Printf("  Model:   %s (%s)\n", cfg.Cloud.Model, cfg.Cloud.BaseURL)
	}
	fmt.Printf("  Hotkey:  %s (%s mode)\n", strings.Join(cfg.Hotkey.Keys, "+"), cfg.Hotkey.Mode)
	fmt.Printf("  Audio:   %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  Paste:   %v\n", cfg.Paste.Enabled)
	fmt.Printf("  History: %s\n", cfg.History.Path)
	fmt.Println("===================")
}
