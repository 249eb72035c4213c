package switcher

// State is a phase of the switch state machine. Every operation starts and
// ends in Idle; a failing one passes through Failed on the way back.
type State int

const (
	Idle State = iota
	Verifying
	Activating
	Finalizing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Verifying:
		return "verifying"
	case Activating:
		return "activating"
	case Finalizing:
		return "finalizing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer is told about every state change. err is set only for Failed.
type Observer func(state State, err error)
