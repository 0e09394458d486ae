// Package hotkey provides a global hotkey listener using gohook.
// It emits one trigger per activation; the session manager treats each
// trigger as a toggle, so "hold" mode fires on both key-down and key-up
// while "toggle" mode fires on key-down only.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// Listener watches a global key combo and emits triggers.
type Listener struct {
	keys []string
	mode string // "hold" or "toggle"
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

// NewListener creates a Listener for the given key combo and mode.
// keys should be lowercase key names (e.g., ["ctrl", "shift", "r"]).
// mode must be "hold" or "toggle".
func NewListener(keys []string, mode string) *Listener {
	return &Listener{
		keys: keys,
		mode: mode,
		ch:   make(chan struct{}, 16),
		done: make(chan struct{}),
	}
}

// Triggers returns the channel that receives hotkey activations.
// The channel is closed when Stop is called.
func (l *Listener) Triggers() <-chan struct{} {
	return l.ch
}

// Start begins listening for the global hotkey.
// This function blocks until Stop is called. Run it in a goroutine.
func (l *Listener) Start() {
	hook.Register(hook.KeyDown, l.keys, func(e hook.Event) {
		l.emit()
	})
	if l.mode == "hold" {
		hook.Register(hook.KeyUp, l.keys, func(e hook.Event) {
			l.emit()
		})
	}

	evChan := hook.Start()
	go func() {
		<-l.done
		hook.End()
	}()
	<-hook.Process(evChan)
	close(l.ch)
}

func (l *Listener) emit() {
	select {
	case l.ch <- struct{}{}:
	default: // don't block the hook callback if the channel is full
	}
}

// Stop terminates the hotkey listener.
// It is safe to call multiple times.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
}
