package audio

import "fmt"

// DefaultMaxSamples caps a session buffer at ten minutes of mono 16kHz
// audio. Hitting the cap fails the session instead of truncating.
const DefaultMaxSamples = 16000 * 60 * 10

// Buffer accumulates captured samples for a single session. It lives
// entirely in memory and is discarded with the session; nothing here ever
// touches durable storage.
type Buffer struct {
	samples []float32
	max     int
	drained bool
}

// NewBuffer creates a session buffer holding at most maxSamples samples.
// maxSamples <= 0 selects DefaultMaxSamples.
func NewBuffer(maxSamples int) *Buffer {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Buffer{max: maxSamples}
}

// Append adds a captured frame. Returns ErrCaptureOverflow once the buffer
// would exceed its cap; the frame is not partially applied.
func (b *Buffer) Append(frame []float32) error {
	if b.drained {
		return fmt.Errorf("append after drain: %w", ErrCaptureOverflow)
	}
	if len(b.samples)+len(frame) > b.max {
		return fmt.Errorf("session exceeds %d samples: %w", b.max, ErrCaptureOverflow)
	}
	b.samples = append(b.samples, frame...)
	return nil
}

// Len returns the number of accumulated samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Drain returns the accumulated samples and releases the buffer's hold on
// them. Destructive: at most one call returns data, any later call
// returns nil.
func (b *Buffer) Drain() []float32 {
	if b.drained {
		return nil
	}
	b.drained = true
	samples := b.samples
	b.samples = nil
	return samples
}
