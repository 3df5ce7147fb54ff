package kiosk

import (
	"facebeer-go/x/mathx"
	"facebeer-go/x/strconvx"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GuestName replaces identities the classifier is unsure about.
const GuestName = "Guest"

// Texts shown in each state.
const (
	TextInitial  = "FaceBeer Press for selfie"
	TextSelfie   = "Say Cheese!"
	TextThinking = "..."
	TextBlow     = "Blow for 10s"
)

func IdentifiedText(name string) string {
	return name + "? Hold button and blow Resetting in 10s"
}

func DoneText(bac float64) string {
	return "BAC: " + strconvx.FormatDecimal(bac) + " Press to reset"
}

// NormalizeIdentity title-cases the label, then applies the guest rule: a
// confidence below threshold becomes "Guest" with confidence 1-confidence.
func NormalizeIdentity(label string, confidence, threshold float64) (name string, conf float64, guest bool) {
	name = cases.Title(language.Und).String(label)
	if confidence < threshold {
		return GuestName, 1 - confidence, true
	}
	return name, confidence, false
}

// PeakBAC is the maximum reading rounded to 3 decimals. ok is false when no
// reading was taken.
func PeakBAC(readings []float64) (bac float64, ok bool) {
	m, ok := mathx.MaxOf(readings)
	if !ok {
		return 0, false
	}
	return mathx.RoundTo(m, 3), true
}
