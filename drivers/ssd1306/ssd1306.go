// Package ssd1306 drives an SSD1306 monochrome OLED over I2C.
//
// The device keeps a page-major frame buffer in RAM; SetPixel only touches the
// buffer and Display pushes the whole frame in one transaction. It satisfies
// tinygo.org/x/drivers.Displayer so tinyfont and friends can draw on it.
//
// Only the I2C transport is provided: the upstream tinygo driver pulls in the
// MCU "machine" package for SPI and does not build on a Linux host.
package ssd1306

import (
	"errors"
	"image/color"

	"tinygo.org/x/drivers"
)

// Address is the usual I2C address (SA0 low).
const Address = 0x3C

// Control bytes prefixed to every I2C transfer.
const (
	ctrlCommand = 0x00
	ctrlData    = 0x40
)

// Commands used by this driver (datasheet section 9).
const (
	cmdDisplayOff       = 0xAE
	cmdDisplayOn        = 0xAF
	cmdSetClockDiv      = 0xD5
	cmdSetMultiplex     = 0xA8
	cmdSetOffset        = 0xD3
	cmdSetStartLine     = 0x40
	cmdChargePump       = 0x8D
	cmdMemoryMode       = 0x20
	cmdSegRemap         = 0xA1
	cmdComScanDec       = 0xC8
	cmdSetComPins       = 0xDA
	cmdSetContrast      = 0x81
	cmdSetPrecharge     = 0xD9
	cmdSetVcomDetect    = 0xDB
	cmdResumeRAM        = 0xA4
	cmdNormalDisplay    = 0xA6
	cmdDeactivateScroll = 0x2E
	cmdColumnAddr       = 0x21
	cmdPageAddr         = 0x22
)

// Errors returned by the driver.
var (
	ErrSize          = errors.New("ssd1306: unsupported size")
	ErrNotConfigured = errors.New("ssd1306: not configured")
)

// Config describes the panel. Zero fields take the 128x64 defaults.
type Config struct {
	Width   int16
	Height  int16
	Address uint16
	// ExternalVCC disables the internal charge pump.
	ExternalVCC bool
}

// Device wraps an I2C connection to an SSD1306 controller.
type Device struct {
	bus     drivers.I2C
	Address uint16

	width, height int16
	externalVCC   bool
	frame         []byte // ctrlData followed by the page-major buffer
	cmd           [2]byte
}

var _ drivers.Displayer = (*Device)(nil)

// New creates a new SSD1306 connection. The I2C bus must already be configured.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Configure allocates the frame buffer and runs the power-up sequence.
func (d *Device) Configure(cfg Config) error {
	if cfg.Width == 0 {
		cfg.Width = 128
	}
	if cfg.Height == 0 {
		cfg.Height = 64
	}
	if cfg.Width <= 0 || cfg.Width > 128 || (cfg.Height != 16 && cfg.Height != 32 && cfg.Height != 64) {
		return ErrSize
	}
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	d.width, d.height = cfg.Width, cfg.Height
	d.externalVCC = cfg.ExternalVCC
	d.frame = make([]byte, 1+int(cfg.Width)*int(cfg.Height)/8)
	d.frame[0] = ctrlData

	comPins := byte(0x12)
	if cfg.Height != 64 {
		comPins = 0x02
	}
	pump, precharge := byte(0x14), byte(0xF1)
	if d.externalVCC {
		pump, precharge = 0x10, 0x22
	}
	seq := []byte{
		cmdDisplayOff,
		cmdSetClockDiv, 0x80,
		cmdSetMultiplex, byte(cfg.Height - 1),
		cmdSetOffset, 0x00,
		cmdSetStartLine,
		cmdChargePump, pump,
		cmdMemoryMode, 0x00, // horizontal addressing
		cmdSegRemap,
		cmdComScanDec,
		cmdSetComPins, comPins,
		cmdSetContrast, 0xCF,
		cmdSetPrecharge, precharge,
		cmdSetVcomDetect, 0x40,
		cmdResumeRAM,
		cmdNormalDisplay,
		cmdDeactivateScroll,
		cmdDisplayOn,
	}
	for _, c := range seq {
		if err := d.command(c); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the panel size in pixels.
func (d *Device) Size() (w, h int16) { return d.width, d.height }

// SetPixel lights the pixel when any colour channel is non-zero.
// Out-of-range coordinates are ignored.
func (d *Device) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= d.width || y >= d.height || d.frame == nil {
		return
	}
	i := 1 + int(x) + int(y/8)*int(d.width)
	bit := byte(1) << uint(y%8)
	if c.R != 0 || c.G != 0 || c.B != 0 {
		d.frame[i] |= bit
	} else {
		d.frame[i] &^= bit
	}
}

// GetPixel reports whether the buffered pixel is lit.
func (d *Device) GetPixel(x, y int16) bool {
	if x < 0 || y < 0 || x >= d.width || y >= d.height || d.frame == nil {
		return false
	}
	return d.frame[1+int(x)+int(y/8)*int(d.width)]&(1<<uint(y%8)) != 0
}

// ClearBuffer blanks the RAM buffer without touching the panel.
func (d *Device) ClearBuffer() {
	for i := 1; i < len(d.frame); i++ {
		d.frame[i] = 0
	}
}

// ClearDisplay blanks the buffer and pushes it.
func (d *Device) ClearDisplay() error {
	d.ClearBuffer()
	return d.Display()
}

// Display sends the whole buffer to the panel.
func (d *Device) Display() error {
	if d.frame == nil {
		return ErrNotConfigured
	}
	for _, c := range []byte{
		cmdColumnAddr, 0, byte(d.width - 1),
		cmdPageAddr, 0, byte(d.height/8 - 1),
	} {
		if err := d.command(c); err != nil {
			return err
		}
	}
	return d.bus.Tx(d.Address, d.frame, nil)
}

func (d *Device) command(c byte) error {
	d.cmd[0] = ctrlCommand
	d.cmd[1] = c
	return d.bus.Tx(d.Address, d.cmd[:], nil)
}
