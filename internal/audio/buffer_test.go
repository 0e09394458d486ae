package audio

import (
	"errors"
	"testing"
)

func TestBufferAppendAndDrain(t *testing.T) {
	b := NewBuffer(0)

	if err := b.Append([]float32{1, 2, 3}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := b.Append([]float32{4, 5}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if b.Len() != 5 {
		t.Errorf("Len() = %d, want 5", b.Len())
	}

	samples := b.Drain()
	if len(samples) != 5 {
		t.Fatalf("Drain() returned %d samples, want 5", len(samples))
	}
	if samples[0] != 1 || samples[4] != 5 {
		t.Errorf("Drain() = %v, want [1 2 3 4 5]", samples)
	}
}

func TestBufferDrainAtMostOnce(t *testing.T) {
	b := NewBuffer(0)
	if err := b.Append([]float32{1}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if got := b.Drain(); got == nil {
		t.Fatal("first Drain() should return samples")
	}
	if got := b.Drain(); got != nil {
		t.Errorf("second Drain() = %v, want nil", got)
	}
}

func TestBufferOverflow(t *testing.T) {
	b := NewBuffer(4)

	if err := b.Append([]float32{1, 2, 3}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	err := b.Append([]float32{4, 5})
	if !errors.Is(err, ErrCaptureOverflow) {
		t.Fatalf("Append() past cap error = %v, want ErrCaptureOverflow", err)
	}

	// The overflowing frame must not be partially applied.
	if b.Len() != 3 {
		t.Errorf("Len() after overflow = %d, want 3", b.Len())
	}
}

func TestBufferAppendAfterDrain(t *testing.T) {
	b := NewBuffer(0)
	b.Drain()

	if err := b.Append([]float32{1}); err == nil {
		t.Error("Append() after Drain() should fail")
	}
}

func TestBufferEmptyDrain(t *testing.T) {
	b := NewBuffer(0)
	if got := b.Drain(); got != nil {
		t.Errorf("Drain() on empty buffer = %v, want nil", got)
	}
}
