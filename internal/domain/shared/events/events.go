package events

import "time"

// DomainEvent is a fact about one aggregate, named "<aggregate>.<verb>".
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder holds events raised by an aggregate until they are written
// to the outbox.
type EventRecorder struct {
	raised []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event != nil {
		r.raised = append(r.raised, event)
	}
}

// Events returns a copy of the events not yet drained.
func (r *EventRecorder) Events() []DomainEvent {
	return append([]DomainEvent(nil), r.raised...)
}

// Drain returns the recorded events and forgets them.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.raised
	r.raised = nil
	return out
}
