// Package notifytest provides an in-memory notifier for tests.
package notifytest

import (
	"context"
	"sync"

	"github.com/mmynk/esusu/internal/notify"
)

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event

	// Err, when set, is returned from Notify after recording.
	Err error
}

// Notify implements notify.Notifier.
func (r *Recorder) Notify(_ context.Context, event notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t notify.EventType) []notify.Event {
	var out []notify.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
