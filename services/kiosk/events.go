package kiosk

import "facebeer-go/bus"

// Bus topics published by the controller.
var (
	TopicState      = bus.T("kiosk", "state") // retained
	TopicIdentified = bus.T("kiosk", "identified")
	TopicResult     = bus.T("kiosk", "result")
	TopicReset      = bus.T("kiosk", "reset")
)

// Reset reasons.
const (
	ReasonTimeout   = "timeout"
	ReasonConfirmed = "confirmed"
)

type StateEvent struct {
	SessionID string `json:"session_id"`
	From      State  `json:"from"`
	To        State  `json:"to"`
	TSms      int64  `json:"ts_ms"`
}

type IdentifiedEvent struct {
	SessionID  string  `json:"session_id"`
	RawLabel   string  `json:"raw_label"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Guest      bool    `json:"guest"`
	TSms       int64   `json:"ts_ms"`
}

// ResultEvent closes a BLOW window. Err is set when the remote write failed.
type ResultEvent struct {
	SessionID  string  `json:"session_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	BAC        float64 `json:"bac"`
	Samples    int     `json:"samples"`
	Code       int     `json:"code"`
	Err        string  `json:"err,omitempty"`
	TSms       int64   `json:"ts_ms"`
}

type ResetEvent struct {
	SessionID string `json:"session_id"`
	From      State  `json:"from"`
	Reason    string `json:"reason"`
	TSms      int64  `json:"ts_ms"`
}
