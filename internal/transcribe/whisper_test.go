package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mhersche/whisperclip/internal/config"
)

// modelPath resolves the whisper model relative to the project root and
// skips when it has not been downloaded.
func modelPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join("..", "..", "models", "ggml-base.en.bin")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run 'make model' first): %v", path, err)
	}
	return path
}

func TestNewWhisperTranscriberBadPath(t *testing.T) {
	_, err := NewWhisperTranscriber("/nonexistent/model.bin")
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("NewWhisperTranscriber() with bad path error = %v, want ErrModelLoad", err)
	}
}

func TestWhisperTranscribeSilence(t *testing.T) {
	path := modelPath(t)

	tr, err := NewWhisperTranscriber(path)
	if err != nil {
		t.Fatalf("NewWhisperTranscriber() error = %v", err)
	}
	defer tr.Close()

	// Silence should not error, just return empty-ish text.
	silence := make([]float32, 32000) // 2 seconds
	res, err := tr.Transcribe(context.Background(), Request{Samples: silence, SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe() on silence error = %v", err)
	}
	if res.Backend != "local" {
		t.Errorf("Backend = %q, want %q", res.Backend, "local")
	}
	if len(strings.Fields(res.Text)) > 3 {
		t.Errorf("silence produced suspicious transcript: %q", res.Text)
	}
}

func TestWhisperClose(t *testing.T) {
	path := modelPath(t)

	tr, err := NewWhisperTranscriber(path)
	if err != nil {
		t.Fatalf("NewWhisperTranscriber() error = %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewSelectsCloudBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "cloud"
	cfg.Cloud.APIKey = "gsk_test"

	tr, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tr.Close()

	if _, ok := tr.(*CloudTranscriber); !ok {
		t.Errorf("New() returned %T, want *CloudTranscriber", tr)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = "carrier-pigeon"

	if _, err := New(cfg); err == nil {
		t.Error("New() with unknown backend should fail")
	}
}
