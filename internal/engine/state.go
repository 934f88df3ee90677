package engine

import "fmt"

// State is the lifecycle position of one exercise surface.
type State int

const (
	StateIdle       State = iota // No task loaded
	StateGenerating              // Task request in flight
	StateReady                   // Task loaded, awaiting an answer
	StateSubmitted               // Answer being checked
	StateFeedback                // Verdict available
)

var stateNames = [...]string{"idle", "generating", "ready", "submitted", "feedback"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Busy reports whether a transition chain is in flight.
func (s State) Busy() bool {
	return s == StateGenerating || s == StateSubmitted
}

func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("invalid state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if string(b) == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}
