package checkout

import "fmt"

// State is a step of the checkout flow. Values are ordered by progress.
type State int

const (
	StateCollectingDetails State = iota + 1
	StateSelectingPayment
	StateSubmitting
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateCollectingDetails: "collecting_details",
	StateSelectingPayment:  "selecting_payment",
	StateSubmitting:        "submitting",
	StateCompleted:         "completed",
	StateFailed:            "failed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether the flow has finished an attempt.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	name, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("invalid checkout state %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("invalid checkout state %q", string(text))
}
