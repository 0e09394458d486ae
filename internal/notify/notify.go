// Package notify shows desktop notifications for session milestones.
// Notifications are cosmetic: every failure is logged and swallowed.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const title = "whisperclip"

// Notifier posts desktop notifications when enabled.
type Notifier struct {
	enabled bool
	log     *slog.Logger
	send    func(title, message, icon string) error
}

// New returns a Notifier. When enabled is false every method is a no-op.
func New(enabled bool, log *slog.Logger) *Notifier {
	return &Notifier{
		enabled: enabled,
		log:     log,
		send:    beeep.Notify,
	}
}

// Done announces a finished transcription. Long transcripts are
// truncated so the notification stays readable.
func (n *Notifier) Done(text string) {
	if text == "" {
		n.post("Transcribed (empty)")
		return
	}
	const max = 120
	if len(text) > max {
		text = text[:max] + "..."
	}
	n.post(text)
}

// Failed announces a failed session.
func (n *Notifier) Failed(err error) {
	if err == nil {
		return
	}
	n.post("Transcription failed: " + err.Error())
}

func (n *Notifier) post(message string) {
	if !n.enabled {
		return
	}
	if err := n.send(title, message, ""); err != nil {
		n.log.Debug("notification failed", slog.String("error", err.Error()))
	}
}
