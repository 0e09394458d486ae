// Package audio provides microphone capture, per-session sample buffering,
// and resampling to the mono 16kHz format transcription backends expect.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

var (
	// ErrDeviceUnavailable indicates the input device is absent or already claimed.
	ErrDeviceUnavailable = errors.New("audio: input device unavailable")
	// ErrCaptureOverflow indicates captured audio outgrew the in-memory cap.
	ErrCaptureOverflow = errors.New("audio: capture overflow")
)

// frameQueueDepth bounds the channel between the driver callback and the
// consumer. At the default 16kHz with ~10ms driver periods this is several
// seconds of headroom; a full queue means the consumer has stalled.
const frameQueueDepth = 256

// Capture owns the microphone device and pushes frames to a bounded channel
// while active. The device is open only between Start and Stop.
type Capture struct {
	ctx        *malgo.AllocatedContext
	sampleRate uint32
	channels   uint32

	mu       sync.Mutex
	device   *malgo.Device
	frames   chan []float32
	active   bool
	overflow bool
	pushed   uint64 // samples pushed since Start
}

// NewCapture creates a capture source. Call Close() when done.
func NewCapture(sampleRate, channels uint32) (*Capture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", ErrDeviceUnavailable)
	}

	return &Capture{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// SampleRate returns the configured capture sample rate.
func (c *Capture) SampleRate() uint32 { return c.sampleRate }

// Channels returns the configured channel count.
func (c *Capture) Channels() uint32 { return c.channels }

// Start opens the microphone and begins pushing float32 frames onto the
// returned channel. The channel is closed by Stop. Returns
// ErrDeviceUnavailable when the device cannot be opened or is already claimed.
func (c *Capture) Start() (<-chan []float32, error) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil, fmt.Errorf("capture already active: %w", ErrDeviceUnavailable)
	}
	c.frames = make(chan []float32, frameQueueDepth)
	c.active = true
	c.overflow = false
	c.pushed = 0
	c.mu.Unlock()

	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = c.channels
	deviceCfg.SampleRate = c.sampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: c.onData,
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		c.abortStart()
		return nil, fmt.Errorf("initializing capture device: %w", ErrDeviceUnavailable)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		c.abortStart()
		return nil, fmt.Errorf("starting capture device: %w", ErrDeviceUnavailable)
	}

	c.mu.Lock()
	c.device = device
	frames := c.frames
	c.mu.Unlock()

	return frames, nil
}

func (c *Capture) abortStart() {
	c.mu.Lock()
	close(c.frames)
	c.frames = nil
	c.active = false
	c.mu.Unlock()
}

// Stop closes the microphone and the frame channel, and returns the total
// captured duration. Safe to call when not active (returns zero).
// Uninit blocks until the driver callback has finished, so no frame is
// pushed after the channel closes.
func (c *Capture) Stop() time.Duration {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return 0
	}
	device := c.device
	c.device = nil
	c.mu.Unlock()

	// Uninit outside the lock: the data callback takes c.mu and Uninit
	// waits for it to return.
	if device != nil {
		device.Uninit()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	close(c.frames)
	c.frames = nil
	c.active = false

	perChannel := c.pushed / uint64(c.channels)
	return time.Duration(perChannel) * time.Second / time.Duration(c.sampleRate)
}

// Active reports whether the microphone is currently open.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Overflowed reports whether any frame was dropped because the frame queue
// was full. Checked by the session after Stop; a dropped frame fails the
// session rather than silently truncating the transcript.
func (c *Capture) Overflowed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overflow
}

// Close releases all audio resources.
func (c *Capture) Close() error {
	c.mu.Lock()
	device := c.device
	c.device = nil
	c.mu.Unlock()

	if device != nil {
		device.Uninit()
	}

	c.mu.Lock()
	if c.active {
		close(c.frames)
		c.frames = nil
		c.active = false
	}
	c.mu.Unlock()

	if c.ctx != nil {
		if err := c.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninitializing audio context: %w", err)
		}
		c.ctx.Free()
		c.ctx = nil
	}

	return nil
}

// onData is the malgo callback invoked when audio data is available.
// It must never block on downstream processing; a full queue marks
// overflow and drops the frame.
func (c *Capture) onData(_, pSample []byte, frameCount uint32) {
	sampleCount := frameCount * c.channels
	samples := bytesToFloat32(pSample, sampleCount)

	c.mu.Lock()
	frames := c.frames
	if frames == nil {
		c.mu.Unlock()
		return
	}
	select {
	case frames <- samples:
		c.pushed += uint64(len(samples))
	default:
		c.overflow = true
	}
	c.mu.Unlock()
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}
