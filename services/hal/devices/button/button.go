// Package button reads a momentary push button on a GPIO input.
package button

import (
	"fmt"

	"facebeer-go/errcode"
	"facebeer-go/services/hal/internal/halcore"
)

type Params struct {
	Pin    int
	Pull   string // "none","up","down"
	Invert bool   // true if pressed == low
}

type Device struct {
	pin    halcore.GPIOPin
	invert bool
}

func New(pins halcore.PinFactory, p Params) (*Device, error) {
	if p.Pin < 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "button.new", Msg: "negative pin"}
	}
	pull, ok := halcore.ParsePull(p.Pull)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "button.new", Msg: "bad pull " + p.Pull}
	}
	pin, ok := pins.ByNumber(p.Pin)
	if !ok {
		return nil, errcode.Hardware("button.new", fmt.Errorf("gpio %d not available", p.Pin))
	}
	if err := pin.ConfigureInput(pull); err != nil {
		return nil, errcode.Hardware("button.configure", err)
	}
	return &Device{pin: pin, invert: p.Invert}, nil
}

// Pressed samples the line once. No debouncing: the controller polls.
func (d *Device) Pressed() bool { return d.pin.Get() != d.invert }

func (d *Device) Pin() int { return d.pin.Number() }
