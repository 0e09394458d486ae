// Package session sequences one recording at a time through capture,
// resampling, transcription, and delivery. All state mutation happens
// through the Manager's transitions; no other component owns the
// microphone or the active-session slot.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhersche/whisperclip/internal/audio"
	"github.com/mhersche/whisperclip/internal/deliver"
	"github.com/mhersche/whisperclip/internal/history"
	"github.com/mhersche/whisperclip/internal/transcribe"
)

// State is the session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MinDuration is the shortest capture worth transcribing. Anything
// shorter is discarded without invoking a backend.
const MinDuration = 300 * time.Millisecond

// Session is the unit of work for one recording. Discarded once its
// result is handed off; never persisted.
type Session struct {
	ID        string
	State     State
	StartedAt time.Time
	Frames    int
}

// CaptureSource is the microphone abstraction the manager drives.
type CaptureSource interface {
	Start() (<-chan []float32, error)
	Stop() time.Duration
	Overflowed() bool
	SampleRate() uint32
	Channels() uint32
}

// Transcriber converts resampled audio to text (see transcribe.New).
type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// Deliverer hands the transcript to the user.
type Deliverer interface {
	Deliver(text string) (deliver.Outcome, error)
}

// HistorySink records completed transcriptions. Best-effort: failures are
// logged, never block delivery.
type HistorySink interface {
	Record(ctx context.Context, e history.Entry) error
}

// Outcome is emitted on Results exactly once per session that fails or
// reaches transcription. Err is set on failed sessions; a failed session
// leaves the machine in the Error state until Acknowledge.
type Outcome struct {
	SessionID string
	Text      string
	Backend   string
	Elapsed   time.Duration
	Delivery  deliver.Outcome
	Err       error
}

// Options configures a Manager.
type Options struct {
	Capture    CaptureSource
	Transcribe Transcriber
	Deliver    Deliverer
	History    HistorySink
	Log        *slog.Logger
	Model      string // backend model reference carried on each request
	MaxSamples int    // session buffer cap; 0 selects the default
}

// Manager is the session state machine. Exactly one session may be in
// Recording or Transcribing at a time; a new one may only begin from a
// terminal state (Idle, or Error after Acknowledge).
type Manager struct {
	capture    CaptureSource
	transcribe Transcriber
	deliver    Deliverer
	hist       HistorySink
	log        *slog.Logger

	model      string
	maxSamples int

	mu       sync.Mutex
	state    State
	sess     *Session
	buf      *audio.Buffer
	pumpDone chan struct{}
	pumpErr  error
	lastErr  error

	results chan Outcome
}

// NewManager creates an idle Manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		capture:    opts.Capture,
		transcribe: opts.Transcribe,
		deliver:    opts.Deliver,
		hist:       opts.History,
		log:        opts.Log,
		model:      opts.Model,
		maxSamples: opts.MaxSamples,
		state:      StateIdle,
		results:    make(chan Outcome, 8),
	}
}

// Results delivers session outcomes to the control loop.
func (m *Manager) Results() <-chan Outcome {
	return m.results
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the pending error while in the Error state, nil otherwise.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Acknowledge observes a pending error and returns the machine to Idle.
// The only transition out of Error; a no-op in any other state.
func (m *Manager) Acknowledge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateError {
		return
	}
	m.state = StateIdle
	m.lastErr = nil
	m.sess = nil
}

// Trigger advances the machine on a user trigger event: Idle starts a
// recording, Recording stops it and dispatches transcription. Triggers
// during Transcribing or Error are ignored, so at most two user-actionable
// states exist at any time.
func (m *Manager) Trigger() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateIdle:
		m.startLocked()
	case StateRecording:
		m.stopAndDispatchLocked()
	default:
		m.log.Debug("trigger ignored", slog.String("state", m.state.String()))
	}
}

// Cancel discards an active recording without transcribing. A no-op
// outside Recording; a session already dispatched runs to completion.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRecording {
		return
	}
	m.capture.Stop()
	<-m.pumpDone
	m.releaseLocked()
	m.state = StateIdle
	m.sess = nil
	m.log.Info("recording cancelled, buffer discarded")
}

// startLocked transitions Idle -> Recording.
func (m *Manager) startLocked() {
	sess := &Session{
		ID:        uuid.NewString(),
		State:     StateRecording,
		StartedAt: time.Now(),
	}

	frames, err := m.capture.Start()
	if err != nil {
		m.failLocked(sess, fmt.Errorf("start capture: %w", err))
		return
	}

	m.sess = sess
	m.state = StateRecording
	m.buf = audio.NewBuffer(m.maxSamples)
	m.pumpDone = make(chan struct{})
	m.pumpErr = nil

	// Frame pump: the only writer into the session buffer. Runs until the
	// capture source closes the channel on Stop.
	go m.pump(frames, m.buf)

	m.log.Info("recording started", slog.String("session", sess.ID))
}

// pump appends captured frames into the session buffer. On overflow it
// keeps draining so the producer never backs up; the error surfaces when
// the session is dispatched.
func (m *Manager) pump(frames <-chan []float32, buf *audio.Buffer) {
	defer close(m.pumpDone)
	for frame := range frames {
		if m.pumpErr != nil {
			continue
		}
		if err := buf.Append(frame); err != nil {
			m.pumpErr = err
		}
	}
}

// stopAndDispatchLocked transitions Recording -> Transcribing. Capture is
// fully stopped and the buffer fully drained before any backend work
// begins.
func (m *Manager) stopAndDispatchLocked() {
	duration := m.capture.Stop()
	<-m.pumpDone

	sess := m.sess

	if m.pumpErr != nil {
		m.failLocked(sess, m.pumpErr)
		return
	}
	if m.capture.Overflowed() {
		m.failLocked(sess, fmt.Errorf("frame queue overrun: %w", audio.ErrCaptureOverflow))
		return
	}

	sess.Frames = m.buf.Len()

	if duration < MinDuration {
		m.releaseLocked()
		m.state = StateIdle
		m.sess = nil
		m.log.Info("recording too short, discarded",
			slog.Duration("duration", duration))
		return
	}

	samples := m.buf.Drain()
	m.buf = nil

	resampled, err := audio.Resample(samples, int(m.capture.SampleRate()), int(m.capture.Channels()))
	if err != nil {
		m.failLocked(sess, err)
		return
	}

	m.state = StateTranscribing
	sess.State = StateTranscribing
	m.log.Info("transcribing",
		slog.String("session", sess.ID),
		slog.Duration("captured", duration),
		slog.Int("samples", len(resampled)))

	req := transcribe.Request{
		Samples:    resampled,
		SampleRate: audio.TargetRate,
		Model:      m.model,
	}

	// Backend work runs off the control thread: CPU-bound local inference
	// or a network wait, either way the trigger handler stays responsive.
	go m.runTranscription(sess, req)
}

// runTranscription completes a dispatched session.
func (m *Manager) runTranscription(sess *Session, req transcribe.Request) {
	res, err := m.transcribe.Transcribe(context.Background(), req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.failLocked(sess, err)
		return
	}

	outcome := Outcome{
		SessionID: sess.ID,
		Text:      res.Text,
		Backend:   res.Backend,
		Elapsed:   res.Elapsed,
	}

	delivery, err := m.deliver.Deliver(res.Text)
	outcome.Delivery = delivery
	if err != nil {
		// The transcript survives in history even when the clipboard is
		// broken, so this reports without entering the Error state.
		outcome.Err = err
		m.log.Error("delivery failed", slog.String("error", err.Error()))
	}

	m.recordHistory(sess, res)

	m.state = StateIdle
	m.sess = nil
	m.emitLocked(outcome)
}

// recordHistory persists the transcript best-effort.
func (m *Manager) recordHistory(sess *Session, res transcribe.Result) {
	if m.hist == nil {
		return
	}
	entry := history.Entry{
		Text:    res.Text,
		Backend: res.Backend,
	}
	if err := m.hist.Record(context.Background(), entry); err != nil {
		m.log.Warn("history write failed",
			slog.String("session", sess.ID),
			slog.String("error", err.Error()))
	}
}

// failLocked moves the machine to Error with the given cause and reports
// the failed session. The buffer is released unconditionally.
func (m *Manager) failLocked(sess *Session, err error) {
	m.releaseLocked()
	m.state = StateError
	m.lastErr = err
	id := ""
	if sess != nil {
		sess.State = StateError
		id = sess.ID
	}
	m.log.Error("session failed",
		slog.String("session", id),
		slog.String("error", err.Error()))
	m.emitLocked(Outcome{SessionID: id, Err: err})
}

// releaseLocked drops the session buffer. Drain on an already-drained
// buffer is a no-op, so this is safe on every exit path.
func (m *Manager) releaseLocked() {
	if m.buf != nil {
		m.buf.Drain()
		m.buf = nil
	}
}

// emitLocked reports an outcome without ever wedging a transition: the
// control loop normally keeps up, and a full channel only means outcomes
// are going unobserved.
func (m *Manager) emitLocked(o Outcome) {
	select {
	case m.results <- o:
	default:
		m.log.Warn("outcome dropped, results channel full",
			slog.String("session", o.SessionID))
	}
}
