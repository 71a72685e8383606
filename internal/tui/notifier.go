package tui

import "github.com/osmia/marginalia/internal/engine"

// Notifier is the TUI's engine.Notifier: notifications land in a buffered
// channel the model drains into toast messages. Notify never blocks; under
// backpressure the oldest queued notice is dropped in favor of the new one.
type Notifier struct {
	ch chan engine.Notification
}

// NewNotifier returns a notifier ready to hand to the engine.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan engine.Notification, 8)}
}

// Notify implements engine.Notifier.
func (n *Notifier) Notify(notice engine.Notification) {
	for {
		select {
		case n.ch <- notice:
			return
		default:
			select {
			case <-n.ch:
			default:
			}
		}
	}
}
