// Package transcribe provides speech-to-text backends behind one contract.
//
// Supported backends:
//   - whisper: on-device whisper.cpp inference via Go bindings
//   - cloud: Groq-compatible transcription API over HTTPS
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mhersche/whisperclip/internal/config"
)

var (
	// ErrModelLoad indicates the local model file is missing or corrupt.
	ErrModelLoad = errors.New("transcribe: model load failed")
	// ErrInference indicates local inference failed.
	ErrInference = errors.New("transcribe: inference failed")
	// ErrAuth indicates a missing or rejected cloud credential.
	ErrAuth = errors.New("transcribe: authentication failed")
	// ErrNetwork indicates the cloud endpoint was unreachable or timed out.
	ErrNetwork = errors.New("transcribe: network failure")
	// ErrRemote indicates the cloud endpoint returned a non-success response.
	ErrRemote = errors.New("transcribe: remote error")
)

// Request carries one session's resampled audio to a backend. Immutable
// once built and consumed exactly once.
type Request struct {
	Samples    []float32 // mono, 16kHz, normalized
	SampleRate int
	Model      string // backend-specific model reference
}

// Result is the outcome of one transcription.
type Result struct {
	Text    string
	Backend string
	Elapsed time.Duration
}

// Transcriber converts one Request to a Result. Implementations manage
// their own blocking (CPU-bound inference or network wait); callers run
// Transcribe off the interactive thread.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Transcriber based on the configured backend. The backend
// is selected once here, not re-selected per request.
func New(cfg *config.Config) (Transcriber, error) {
	switch cfg.Backend {
	case "cloud":
		return NewCloudTranscriber(CloudOptions{
			APIKey:  cfg.Cloud.APIKey,
			BaseURL: cfg.Cloud.BaseURL,
			Model:   cfg.Cloud.Model,
			Timeout: time.Duration(cfg.Cloud.TimeoutSeconds) * time.Second,
		})
	case "local", "":
		return NewWhisperTranscriber(cfg.ModelPath)
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: local, cloud)", cfg.Backend)
	}
}
