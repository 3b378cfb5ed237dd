package testing

import (
	"context"
	"sync"

	"bookingserver/remotejob"
)

// Events records published events.
type Events struct {
	mu   sync.Mutex
	sent []remotejob.Event
}

// Publish implements remotejob.Sink.
func (e *Events) Publish(ctx context.Context, ev remotejob.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, ev)
}

// Sent returns the events published so far.
func (e *Events) Sent() []remotejob.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]remotejob.Event(nil), e.sent...)
}

// Types returns the type of every published event in order.
func (e *Events) Types() []string {
	var out []string
	for _, ev := range e.Sent() {
		out = append(out, ev.Type)
	}
	return out
}
