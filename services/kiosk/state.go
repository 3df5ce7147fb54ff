package kiosk

import "fmt"

// State is the controller's position in the session cycle.
type State uint8

const (
	Initial State = iota
	Selfie
	ML
	Identified
	Blow
	Done
)

var stateNames = [...]string{
	Initial:    "INITIAL",
	Selfie:     "SELFIE",
	ML:         "ML",
	Identified: "IDENTIFIED",
	Blow:       "BLOW",
	Done:       "DONE",
}

func (s State) Valid() bool { return int(s) < len(stateNames) }

func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("State(%d)", uint8(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("kiosk: invalid state %d", uint8(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("kiosk: unknown state %q", b)
}

// CanTransition reports whether from -> to is an edge of the cycle.
// Both the IDENTIFIED timeout and the DONE confirmation lead back to INITIAL.
func CanTransition(from, to State) bool {
	switch from {
	case Initial:
		return to == Selfie
	case Selfie:
		return to == ML
	case ML:
		return to == Identified
	case Identified:
		return to == Initial || to == Blow
	case Blow:
		return to == Done
	case Done:
		return to == Initial
	}
	return false
}
