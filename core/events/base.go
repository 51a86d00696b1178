package events

import "time"

type Kind string

// Event is implemented by every event the agent emits. The set of
// implementations is closed to this package.
type Event interface {
	Kind() Kind
	Timestamp() time.Time

	event()
}

type Base struct {
	timestamp time.Time
}

func NewBase() Base {
	return Base{timestamp: time.Now()}
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

func (Base) event() {}
