// services/hal/internal/platform/factories_other.go
//go:build !linux

package platform

import (
	"facebeer-go/errcode"
	"facebeer-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

// Host is unavailable off Linux. Tests inject the host fakes instead.
type Host struct{}

func Open() (*Host, error) {
	return nil, &errcode.E{C: errcode.Unsupported, Op: "platform.open", Msg: "no GPIO/I2C host drivers for this OS"}
}

func (*Host) ByID(string) (drivers.I2C, bool)      { return nil, false }
func (*Host) ByNumber(int) (halcore.GPIOPin, bool) { return nil, false }
func (*Host) Close() error                         { return nil }
