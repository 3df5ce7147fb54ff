// services/hal/internal/halcore/types.go
package halcore

import (
	"strings"

	"tinygo.org/x/drivers"
)

// ---- Buses ----

// I2CBusFactory injects configured I²C instances by id.
// Uses the TinyGo drivers.I2C interface so the drivers/ packages stay portable.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// GPIOPin is the input side of a pin; the kiosk never drives outputs.
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	Get() bool
	Number() int
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// Util
func PullToString(p Pull) string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

// ParsePull accepts "up", "down", "none" or "" (none).
func ParsePull(s string) (Pull, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return PullUp, true
	case "down":
		return PullDown, true
	case "", "none":
		return PullNone, true
	}
	return PullNone, false
}
