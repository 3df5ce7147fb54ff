package ssd1306

import (
	"errors"
	"image/color"
	"testing"
)

type txRecord struct {
	addr uint16
	w    []byte
}

// captureBus records every write transaction.
type captureBus struct {
	txs  []txRecord
	fail error
}

func (b *captureBus) Tx(addr uint16, w, r []byte) error {
	if b.fail != nil {
		return b.fail
	}
	b.txs = append(b.txs, txRecord{addr: addr, w: append([]byte(nil), w...)})
	return nil
}

func (b *captureBus) commands() []byte {
	var out []byte
	for _, tx := range b.txs {
		if len(tx.w) == 2 && tx.w[0] == ctrlCommand {
			out = append(out, tx.w[1])
		}
	}
	return out
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func TestConfigureSequence(t *testing.T) {
	bus := &captureBus{}
	d := New(bus)
	if err := d.Configure(Config{}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	cmds := bus.commands()
	if len(cmds) == 0 || cmds[0] != cmdDisplayOff || cmds[len(cmds)-1] != cmdDisplayOn {
		t.Fatalf("unexpected init sequence: % x", cmds)
	}
	if w, h := d.Size(); w != 128 || h != 64 {
		t.Fatalf("Size = %dx%d", w, h)
	}
	for _, tx := range bus.txs {
		if tx.addr != Address {
			t.Fatalf("tx to %#x, want %#x", tx.addr, Address)
		}
	}
}

func TestConfigureRejectsOddSizes(t *testing.T) {
	d := New(&captureBus{})
	if err := d.Configure(Config{Width: 128, Height: 48}); !errors.Is(err, ErrSize) {
		t.Fatalf("expected ErrSize, got %v", err)
	}
}

func TestPixelsAndDisplay(t *testing.T) {
	bus := &captureBus{}
	d := New(bus)
	if err := d.Configure(Config{Width: 128, Height: 32, Address: 0x3D}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	d.SetPixel(3, 9, white)
	d.SetPixel(-1, 0, white) // ignored
	d.SetPixel(200, 0, white)
	if !d.GetPixel(3, 9) || d.GetPixel(4, 9) {
		t.Fatal("pixel buffer mismatch")
	}
	d.SetPixel(3, 9, color.RGBA{})
	if d.GetPixel(3, 9) {
		t.Fatal("expected pixel cleared by black")
	}
	d.SetPixel(0, 8, white)

	bus.txs = nil
	if err := d.Display(); err != nil {
		t.Fatalf("Display: %v", err)
	}
	last := bus.txs[len(bus.txs)-1]
	if last.addr != 0x3D || last.w[0] != ctrlData || len(last.w) != 1+128*32/8 {
		t.Fatalf("unexpected frame tx: addr=%#x len=%d", last.addr, len(last.w))
	}
	// (0,8) lives in page 1, column 0, bit 0.
	if last.w[1+128] != 0x01 {
		t.Fatalf("page 1 col 0 = %#x, want 0x01", last.w[1+128])
	}

	d.ClearBuffer()
	if d.GetPixel(0, 8) {
		t.Fatal("ClearBuffer left pixels on")
	}
}

func TestDisplayBeforeConfigure(t *testing.T) {
	d := New(&captureBus{})
	if err := d.Display(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
