// Package ads1115 provides a driver for the TI ADS1115 16-bit ADC.
// It exposes a two-phase single-shot conversion API:
//
//	d.Trigger(ch)            // start a conversion on a single-ended channel
//	v, err := d.Collect()    // fetch when done; returns ErrNotReady while busy
//
// For convenience, d.ReadRaw(ch) performs trigger + bounded polling.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided, without releasing the bus.
package ads1115

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Address is the default I2C address (ADDR pin tied to GND).
const Address = 0x48

// Register pointers.
const (
	regConversion = 0x00
	regConfig     = 0x01
)

// Config register fields.
const (
	osSingle     = 0x8000 // write: start a conversion; read: 1 = idle
	muxSingle0   = 0x4000 // AIN0 vs GND; channels 1..3 follow in steps of 0x1000
	modeSingle   = 0x0100
	compQueueOff = 0x0003
)

// Gain selects the programmable gain amplifier full-scale range.
type Gain uint16

const (
	GainTwoThirds Gain = 0x0000 // +/-6.144 V
	Gain1         Gain = 0x0200 // +/-4.096 V
	Gain2         Gain = 0x0400 // +/-2.048 V (power-on default)
	Gain4         Gain = 0x0600 // +/-1.024 V
	Gain8         Gain = 0x0800 // +/-0.512 V
	Gain16        Gain = 0x0A00 // +/-0.256 V
)

// GainFor maps the customary numeric gain (0 for 2/3, 1, 2, 4, 8, 16) to a
// Gain setting.
func GainFor(n int) (Gain, bool) {
	switch n {
	case 0:
		return GainTwoThirds, true
	case 1:
		return Gain1, true
	case 2:
		return Gain2, true
	case 4:
		return Gain4, true
	case 8:
		return Gain8, true
	case 16:
		return Gain16, true
	}
	return 0, false
}

// DataRate selects samples per second.
type DataRate uint16

const (
	SPS8   DataRate = 0x0000
	SPS16  DataRate = 0x0020
	SPS32  DataRate = 0x0040
	SPS64  DataRate = 0x0060
	SPS128 DataRate = 0x0080 // power-on default
	SPS250 DataRate = 0x00A0
	SPS475 DataRate = 0x00C0
	SPS860 DataRate = 0x00E0
)

// Period is the nominal conversion time for the rate.
func (r DataRate) Period() time.Duration {
	sps := [...]int{8, 16, 32, 64, 128, 250, 475, 860}[(r>>5)&0x7]
	return time.Second / time.Duration(sps)
}

// Errors returned by the driver.
var (
	ErrTimeout    = errors.New("ads1115: timeout")
	ErrNotReady   = errors.New("ads1115: not ready")
	ErrBadChannel = errors.New("ads1115: channel out of range")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x48 if zero.
	Address uint16
	// Gain defaults to GainTwoThirds when zero; pick explicitly for anything else.
	Gain     Gain
	DataRate DataRate
	// PollInterval is used by ReadRaw between Collect attempts. Default 1 ms.
	PollInterval time.Duration
	// ConversionTimeout bounds the total wait in ReadRaw. Default 100 ms.
	ConversionTimeout time.Duration
}

// Device wraps an I2C connection to an ADS1115.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg  Config
	w    [3]byte // reuse buffers to avoid allocations
	r    [2]byte
	last int16
}

// New creates a new ADS1115 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
		cfg:     Config{Gain: Gain2, DataRate: SPS128},
	}
}

// Configure applies optional config. The ADS1115 has no init sequence; every
// conversion carries its full configuration.
func (d *Device) Configure(cfgs ...Config) {
	c := d.cfg
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.DataRate == 0 {
		c.DataRate = SPS128
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Millisecond
	}
	if c.ConversionTimeout <= 0 {
		c.ConversionTimeout = 100 * time.Millisecond
	}
	d.cfg = c
}

// Trigger starts a single-shot conversion of channel ch (0..3) against GND.
func (d *Device) Trigger(ch int) error {
	if ch < 0 || ch > 3 {
		return ErrBadChannel
	}
	if d.cfg.PollInterval == 0 {
		d.Configure()
	}
	cfg := uint16(osSingle|muxSingle0|modeSingle|compQueueOff) |
		uint16(ch)<<12 | uint16(d.cfg.Gain) | uint16(d.cfg.DataRate)
	return d.writeReg(regConfig, cfg)
}

// TriggerHint returns the nominal conversion time to wait before Collect.
func (d *Device) TriggerHint() time.Duration {
	return d.cfg.DataRate.Period() + 100*time.Microsecond
}

// Collect reads the conversion result if the device is idle again.
// If the conversion is still running, ErrNotReady is returned.
func (d *Device) Collect() (int16, error) {
	st, err := d.readReg(regConfig)
	if err != nil {
		return 0, err
	}
	if st&osSingle == 0 {
		return 0, ErrNotReady
	}
	v, err := d.readReg(regConversion)
	if err != nil {
		return 0, err
	}
	d.last = int16(v)
	return d.last, nil
}

// ReadRaw performs a full conversion cycle on channel ch: Trigger, a nominal
// wait, then bounded polling until Collect succeeds or the timeout elapses.
func (d *Device) ReadRaw(ch int) (int16, error) {
	if err := d.Trigger(ch); err != nil {
		return 0, err
	}
	time.Sleep(d.TriggerHint())
	deadline := time.Now().Add(d.cfg.ConversionTimeout)
	for {
		v, err := d.Collect()
		switch err {
		case nil:
			return v, nil
		case ErrNotReady:
			if time.Now().After(deadline) {
				return 0, ErrTimeout
			}
			time.Sleep(d.cfg.PollInterval)
		default:
			return 0, err
		}
	}
}

// Last returns the last collected raw value.
func (d *Device) Last() int16 { return d.last }

// I2C 16-bit register operations (big-endian: HIGH then LOW).

func (d *Device) readReg(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) writeReg(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8)
	d.w[2] = byte(val)
	return d.bus.Tx(d.Address, d.w[:3], nil)
}
