package platform

import (
	"errors"
	"testing"

	"facebeer-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

func TestHostPinFactoryReturnsStablePins(t *testing.T) {
	f := &HostPinFactory{}
	a, ok := f.ByNumber(23)
	if !ok || a.Number() != 23 {
		t.Fatalf("ByNumber(23) = %v, %v", a, ok)
	}
	b, _ := f.ByNumber(23)
	if a != b || f.Pin(23) != a {
		t.Fatal("expected the same pin instance")
	}
}

func TestFakePinPullSetsIdleLevel(t *testing.T) {
	p := (&HostPinFactory{}).Pin(5)
	if _, ok := p.Pull(); ok {
		t.Fatal("pin reported configured before ConfigureInput")
	}
	if err := p.ConfigureInput(halcore.PullUp); err != nil {
		t.Fatal(err)
	}
	if !p.Get() {
		t.Fatal("pull-up input should idle high")
	}
	p.Set(false)
	if p.Get() {
		t.Fatal("Set(false) not observed")
	}
	if pull, ok := p.Pull(); !ok || pull != halcore.PullUp {
		t.Fatalf("Pull() = %v, %v", pull, ok)
	}
}

func TestHostI2CReplyAndRecord(t *testing.T) {
	boom := errors.New("nack")
	bus := &HostI2C{Reply: func(addr uint16, w, r []byte) error {
		if addr == 0x49 {
			return boom
		}
		for i := range r {
			r[i] = 0xAB
		}
		return nil
	}}
	f := &HostI2CFactory{Buses: map[string]drivers.I2C{"1": bus}}
	got, ok := f.ByID("1")
	if !ok {
		t.Fatal("bus 1 missing")
	}
	if _, ok := f.ByID("2"); ok {
		t.Fatal("bus 2 should not exist")
	}

	r := make([]byte, 2)
	if err := got.Tx(0x48, []byte{0x01}, r); err != nil {
		t.Fatal(err)
	}
	if r[0] != 0xAB || bus.LastTx.Addr != 0x48 || bus.LastTx.Rn != 2 || bus.LastTx.W[0] != 0x01 {
		t.Fatalf("unexpected record %+v r=% x", bus.LastTx, r)
	}
	if err := got.Tx(0x49, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected reply error, got %v", err)
	}
	if bus.Count != 2 {
		t.Fatalf("Count = %d, want 2", bus.Count)
	}
}
