package transcribe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperTranscriber wraps a whisper.cpp model for on-device speech-to-text.
type WhisperTranscriber struct {
	model whisper.Model
}

// NewWhisperTranscriber loads a whisper model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath string) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %v: %w", modelPath, err, ErrModelLoad)
	}
	return &WhisperTranscriber{model: model}, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe runs whisper inference on mono 16kHz samples. CPU-bound and
// unbounded by ctx: local inference is finite, so no deadline is applied.
func (t *WhisperTranscriber) Transcribe(_ context.Context, req Request) (Result, error) {
	start := time.Now()

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("create whisper context: %v: %w", err, ErrInference)
	}

	if err := wctx.Process(req.Samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("whisper process: %v: %w", err, ErrInference)
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("whisper next segment: %v: %w", err, ErrInference)
		}
		segments = append(segments, seg.Text)
	}

	return Result{
		Text:    strings.TrimSpace(strings.Join(segments, " ")),
		Backend: "local",
		Elapsed: time.Since(start),
	}, nil
}
