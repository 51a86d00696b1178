package orchestration

// State is the lifecycle state of an [Agent].
type State int32

const (
	// StateIdle is the initial state: no recognition, no timers.
	StateIdle State = iota
	// StateListening means recognition is running and nothing is pending.
	StateListening
	// StateAwaitingTurn means a final fragment armed the turn timer.
	StateAwaitingTurn
	// StateResponding means a prompt is in flight or its reply is being
	// spoken.
	StateResponding
	// StateStopped is terminal and reached through Stop.
	StateStopped
	// StateErrored is terminal and reached through a fatal failure. The agent
	// must be discarded.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateAwaitingTurn:
		return "awaiting turn"
	case StateResponding:
		return "responding"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

func (s State) active() bool {
	return s == StateListening || s == StateAwaitingTurn || s == StateResponding
}

func (s State) terminal() bool {
	return s == StateStopped || s == StateErrored
}
