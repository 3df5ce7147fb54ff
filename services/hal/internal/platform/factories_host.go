// services/hal/internal/platform/factories_host.go

package platform

import (
	"sync"

	"facebeer-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

// ----------------------------- I²C (host) ------------------------------------

// HostI2C implements tinygo drivers.I2C for host-side tests.
// Reply, when set, fills r for each transaction; otherwise reads return zeros.
type HostI2C struct {
	mu     sync.Mutex
	Reply  func(addr uint16, w, r []byte) error
	Count  int
	LastTx struct {
		Addr uint16
		W    []byte
		Rn   int
	}
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Count++
	h.LastTx.Addr = addr
	h.LastTx.W = append([]byte(nil), w...)
	h.LastTx.Rn = len(r)
	if h.Reply != nil {
		return h.Reply(addr, w, r)
	}
	for i := range r {
		r[i] = 0
	}
	return nil
}

// HostI2CFactory serves a fixed set of buses by id.
type HostI2CFactory struct {
	Buses map[string]drivers.I2C
}

func (f *HostI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.Buses[id]
	return b, ok
}

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements GPIOPin for host-side tests.
type FakePin struct {
	mu         sync.RWMutex
	number     int
	level      bool
	configured bool
	pull       halcore.Pull
}

// ConfigureInput mimics the electrical effect of the pull on a floating line.
func (p *FakePin) ConfigureInput(pull halcore.Pull) error {
	p.mu.Lock()
	p.configured = true
	p.pull = pull
	switch pull {
	case halcore.PullUp:
		p.level = true
	case halcore.PullDown:
		p.level = false
	}
	p.mu.Unlock()
	return nil
}

// Set drives the line from the outside world (a finger on the button).
func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

// Pull reports the last configured pull and whether ConfigureInput ran.
func (p *FakePin) Pull() (halcore.Pull, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull, p.configured
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func (f *HostPinFactory) ByNumber(n int) (halcore.GPIOPin, bool) {
	return f.Pin(n), true
}

// Pin exposes the underlying *FakePin for tests, creating it on first use.
func (f *HostPinFactory) Pin(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}
