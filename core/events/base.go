package events

import "time"

// Kind names an event type, in "concern.change" form. The package doc lists
// every kind the orchestrator emits.
type Kind string

// Event is the common surface of every orchestration event. Concrete events
// embed Base and add their payload fields.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the kind and emission time shared by all events. It is
// stamped by NewBase inside the event constructors; a zero Base is not a
// valid event.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind { return b.kind }

func (b Base) Timestamp() time.Time { return b.timestamp }
