// Package broadcasttest captures published events for assertions.
package broadcasttest

import (
	"context"
	"sync"

	"github.com/greenheaven/floorsync/internal/broadcast"
	"github.com/greenheaven/floorsync/pkg/enums"
)

// Recorder is a broadcast.Publisher that keeps every event in order.
type Recorder struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (r *Recorder) Publish(_ context.Context, evt broadcast.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *Recorder) Events() []broadcast.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]broadcast.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names lists the event names seen so far.
func (r *Recorder) Names() []enums.EventName {
	events := r.Events()
	out := make([]enums.EventName, 0, len(events))
	for _, evt := range events {
		out = append(out, evt.Name)
	}
	return out
}

// Count returns how many events named name were published.
func (r *Recorder) Count(name enums.EventName) int {
	n := 0
	for _, evt := range r.Events() {
		if evt.Name == name {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
