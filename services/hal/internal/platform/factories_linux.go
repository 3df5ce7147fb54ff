// services/hal/internal/platform/factories_linux.go
//go:build linux

package platform

import (
	"errors"
	"strconv"
	"sync"

	"facebeer-go/errcode"
	"facebeer-go/services/hal/internal/halcore"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// Host hands out periph-backed buses and pins. Buses are opened lazily and
// shared between devices; Close releases them.
type Host struct {
	mu    sync.Mutex
	buses map[string]i2c.BusCloser
}

// Open loads the periph host drivers (sysfs, /dev/gpiomem, ...).
func Open() (*Host, error) {
	if _, err := host.Init(); err != nil {
		return nil, errcode.Hardware("platform.open", err)
	}
	return &Host{buses: map[string]i2c.BusCloser{}}, nil
}

// ByID opens the I2C bus by periph name: "" for the first bus, "1" or
// "/dev/i2c-1" for a specific one.
func (h *Host) ByID(id string) (drivers.I2C, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok := h.buses[id]; ok {
		return b, true
	}
	b, err := i2creg.Open(id)
	if err != nil {
		println("[platform] i2c open", id, "failed:", err.Error())
		return nil, false
	}
	h.buses[id] = b
	return b, true
}

// ByNumber resolves a BCM GPIO number.
func (h *Host) ByNumber(n int) (halcore.GPIOPin, bool) {
	p := gpioreg.ByName(strconv.Itoa(n))
	if p == nil {
		return nil, false
	}
	return &periphPin{pin: p, n: n}, true
}

func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for id, b := range h.buses {
		errs = append(errs, b.Close())
		delete(h.buses, id)
	}
	return errors.Join(errs...)
}

type periphPin struct {
	pin gpio.PinIO
	n   int
}

func (p *periphPin) ConfigureInput(pull halcore.Pull) error {
	pp := gpio.Float
	switch pull {
	case halcore.PullUp:
		pp = gpio.PullUp
	case halcore.PullDown:
		pp = gpio.PullDown
	}
	return p.pin.In(pp, gpio.NoEdge)
}

func (p *periphPin) Get() bool   { return p.pin.Read() == gpio.High }
func (p *periphPin) Number() int { return p.n }
