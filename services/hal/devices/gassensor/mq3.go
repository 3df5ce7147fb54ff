// Package gassensor converts MQ-3 alcohol sensor voltages, sampled through an
// ADC, into a BAC estimate.
package gassensor

import (
	"facebeer-go/errcode"
	"facebeer-go/x/mathx"
)

// Calibration of the stock module wired to an ADS1115 at gain 1.
const (
	DefaultSlope     = 7e-6
	DefaultIntercept = -0.037
)

// ADC is satisfied by *ads1115.Device.
type ADC interface {
	ReadRaw(ch int) (int16, error)
}

type Params struct {
	Channel   int
	Slope     float64
	Intercept float64
}

type MQ3 struct {
	adc ADC
	p   Params
}

func New(adc ADC, p Params) (*MQ3, error) {
	if p.Channel < 0 || p.Channel > 3 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "gassensor.new", Msg: "channel out of range"}
	}
	if p.Slope == 0 && p.Intercept == 0 {
		p.Slope, p.Intercept = DefaultSlope, DefaultIntercept
	}
	return &MQ3{adc: adc, p: p}, nil
}

// Read samples the ADC once. Every call is a fresh conversion.
func (s *MQ3) Read() (float64, error) {
	raw, err := s.adc.ReadRaw(s.p.Channel)
	if err != nil {
		return 0, errcode.Hardware("gassensor.read", err)
	}
	return Convert(raw, s.p.Slope, s.p.Intercept), nil
}

// Convert applies the linear transform and clamps negatives to zero.
func Convert(raw int16, slope, intercept float64) float64 {
	return mathx.Max(slope*float64(raw)+intercept, 0)
}
