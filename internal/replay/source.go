// Package replay implements the deterministic event pump described in
// spec.md §4.3: it drives a (timestamp, event) stream into a book, emits
// periodic snapshots, and invokes registered callbacks. Only the replay
// driver suspends — between events, while pacing to wall-clock time, and
// while awaiting callback completion (spec.md §5).
package replay

import (
	"matchcore/internal/common"
	"matchcore/internal/generator"
)

// EventKind distinguishes a new-order event from a cancel event.
type EventKind int

const (
	NewOrderEvent EventKind = iota
	CancelOrderEvent
)

// Event is one item of the replay stream.
type Event struct {
	Kind     EventKind
	Order    *common.Order // set when Kind == NewOrderEvent
	CancelID string        // set when Kind == CancelOrderEvent
}

// TimedEvent pairs an Event with its simulated arrival time, in seconds
// from the start of the replay.
type TimedEvent struct {
	ElapsedSeconds float64
	Event          Event
}

// Source yields replay events in arrival order. Next returns ok=false once
// exhausted. Implementations are not required to be safe for concurrent
// use; the replay driver is the only consumer.
type Source interface {
	Next() (TimedEvent, bool)
}

// SliceSource replays a pre-materialized, already-ordered event sequence —
// the shape both the synthetic generator and an external recorded-event
// loader (CSV/LOBSTER, out of scope for the core) ultimately produce.
type SliceSource struct {
	events []TimedEvent
	pos    int
}

// NewSliceSource wraps an ordered slice of events as a Source.
func NewSliceSource(events []TimedEvent) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) Next() (TimedEvent, bool) {
	if s.pos >= len(s.events) {
		return TimedEvent{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, true
}

// FromGenerator adapts a generator.Poisson's output into a replay Source.
func FromGenerator(events []generator.TimedEvent) *SliceSource {
	converted := make([]TimedEvent, len(events))
	for i, te := range events {
		kind := NewOrderEvent
		if te.Event.Kind == generator.CancelOrderEvent {
			kind = CancelOrderEvent
		}
		converted[i] = TimedEvent{
			ElapsedSeconds: te.ElapsedSeconds,
			Event: Event{
				Kind:     kind,
				Order:    te.Event.Order,
				CancelID: te.Event.CancelID,
			},
		}
	}
	return NewSliceSource(converted)
}
