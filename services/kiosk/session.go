package kiosk

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// Session holds everything learned about one visitor. It is owned by the
// controller goroutine and replaced wholesale on reset.
type Session struct {
	ID    string
	State State

	// DisplayedText is the text of the live display task, if any.
	DisplayedText string

	Image image.Image

	RawLabel   string
	Identity   string
	Confidence float64
	Guest      bool

	GuestThreshold float64

	// IdentifiedAt opens the confirmation window.
	IdentifiedAt time.Time

	Readings      []float64
	BlowStartedAt time.Time

	FinalBAC    float64
	HasFinalBAC bool

	display DisplayTask
}

// NewSession starts a fresh session in INITIAL. readingsHint preallocates the
// BLOW sample buffer.
func NewSession(threshold float64, readingsHint int) *Session {
	if readingsHint < 0 {
		readingsHint = 0
	}
	return &Session{
		ID:             uuid.NewString(),
		State:          Initial,
		GuestThreshold: threshold,
		Readings:       make([]float64, 0, readingsHint),
	}
}

// TransitionTo moves to state and cancels the active display task, even when
// the next state will show the same text.
func (s *Session) TransitionTo(state State) {
	s.State = state
	s.cancelDisplay()
}

func (s *Session) cancelDisplay() {
	if s.display != nil {
		s.display.Cancel()
		s.display = nil
	}
	s.DisplayedText = ""
}

// DisplayActive reports whether a display task is owned by the session.
func (s *Session) DisplayActive() bool { return s.display != nil }
