package events

const (
	// KindStart identifies the agent starting to listen.
	KindStart Kind = "start"
	// KindStop identifies the agent being stopped.
	KindStop Kind = "stop"
	// KindError identifies a failure surfaced by the agent.
	KindError Kind = "error"
)

// Started marks the agent entering its listening state.
type Started struct{ Base }

// NewStarted creates a start event.
func NewStarted() Started { return Started{Base: NewBase()} }

func (Started) Kind() Kind { return KindStart }

// Stopped marks the agent completing its teardown.
type Stopped struct{ Base }

// NewStopped creates a stop event.
func NewStopped() Stopped { return Stopped{Base: NewBase()} }

func (Stopped) Kind() Kind { return KindStop }

// Failed carries the cause of a failure.
type Failed struct {
	Base
	Err error
}

// NewFailed creates an error event.
func NewFailed(err error) Failed { return Failed{Base: NewBase(), Err: err} }

func (Failed) Kind() Kind { return KindError }
