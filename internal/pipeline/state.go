package pipeline

// State is the loop's run state.
type State int

const (
	StateRunning State = iota
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// transition applies a control signal to a state. A paused loop leaves on
// Resume or a second Pause; SignalNone never changes state; Stopped is
// terminal.
func transition(s State, sig Signal) State {
	switch s {
	case StateRunning:
		switch sig {
		case SignalPause:
			return StatePaused
		case SignalQuit:
			return StateStopped
		}
	case StatePaused:
		switch sig {
		case SignalPause, SignalResume:
			return StateRunning
		case SignalQuit:
			return StateStopped
		}
	}
	return s
}
