// services/hal/hal.go
package hal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"facebeer-go/bus"
	"facebeer-go/drivers/ads1115"
	"facebeer-go/drivers/ssd1306"
	"facebeer-go/errcode"
	"facebeer-go/services/config"
	"facebeer-go/services/hal/devices/button"
	"facebeer-go/services/hal/devices/camera"
	"facebeer-go/services/hal/devices/display"
	"facebeer-go/services/hal/devices/gassensor"
	"facebeer-go/services/hal/internal/halcore"
	"facebeer-go/services/hal/internal/platform"
	"facebeer-go/x/timex"
)

// Capability kinds published under hal/capability/<kind>/0/...
const (
	CapButton  = "button"
	CapGas     = "gas"
	CapDisplay = "display"
	CapCamera  = "camera"
)

// Kit is the kiosk's assembled hardware.
type Kit struct {
	Button  *button.Device
	Gas     *gassensor.MQ3
	Display *display.Renderer
	Camera  *camera.Device

	info   map[string]map[string]any
	closer io.Closer
}

// Open initialises the host platform and builds every device in cfg.
func Open(cfg config.Hardware) (*Kit, error) {
	host, err := platform.Open()
	if err != nil {
		return nil, err
	}
	k, err := build(cfg, host, host, nil)
	if err != nil {
		_ = host.Close()
		return nil, err
	}
	k.closer = host
	return k, nil
}

// build wires the devices over the given factories. A nil runner uses the
// real camera process.
func build(cfg config.Hardware, i2c halcore.I2CBusFactory, pins halcore.PinFactory, run camera.Runner) (*Kit, error) {
	line, ok := i2c.ByID(cfg.I2CBus)
	if !ok {
		return nil, errcode.Hardware("hal.i2c", fmt.Errorf("i2c bus %q not available", cfg.I2CBus))
	}

	btn, err := button.New(pins, button.Params{
		Pin:    cfg.Button.Pin,
		Pull:   cfg.Button.Pull,
		Invert: cfg.Button.ActiveLow,
	})
	if err != nil {
		return nil, err
	}

	gain, ok := ads1115.GainFor(cfg.ADC.Gain)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "hal.adc", Msg: fmt.Sprintf("unsupported gain %d", cfg.ADC.Gain)}
	}
	adc := ads1115.New(line)
	adc.Configure(ads1115.Config{Address: cfg.ADC.Address, Gain: gain, DataRate: ads1115.SPS860})
	gas, err := gassensor.New(&adc, gassensor.Params{
		Channel:   cfg.ADC.Channel,
		Slope:     cfg.ADC.Slope,
		Intercept: cfg.ADC.Intercept,
	})
	if err != nil {
		return nil, err
	}

	panel := ssd1306.New(line)
	if err := panel.Configure(ssd1306.Config{
		Width:   cfg.OLED.Width,
		Height:  cfg.OLED.Height,
		Address: cfg.OLED.Address,
	}); err != nil {
		return nil, errcode.Hardware("hal.oled", err)
	}
	screen := display.New(panel, display.Params{
		Border:        cfg.OLED.Border,
		Speed:         cfg.OLED.Speed,
		FrameInterval: cfg.OLED.FrameInterval,
	})

	camParams := camera.Params{
		Command: cfg.Camera.Command,
		Width:   cfg.Camera.Width,
		Height:  cfg.Camera.Height,
		Warmup:  cfg.Camera.Warmup,
		Timeout: cfg.Camera.Timeout,
	}
	if run == nil {
		run = camera.ExecRunner
	}
	cam, err := camera.NewWithRunner(camParams, run)
	if err != nil {
		return nil, err
	}

	w, h := panel.Size()
	return &Kit{
		Button:  btn,
		Gas:     gas,
		Display: screen,
		Camera:  cam,
		info: map[string]map[string]any{
			CapButton:  {"pin": btn.Pin(), "pull": cfg.Button.Pull, "active_low": cfg.Button.ActiveLow},
			CapGas:     {"adc": "ads1115", "addr": adc.Address, "channel": cfg.ADC.Channel},
			CapDisplay: {"driver": "ssd1306", "addr": panel.Address, "width": w, "height": h},
			CapCamera:  {"argv": cam.Argv()},
		},
	}, nil
}

func capTopic(kind string, rest ...any) bus.Topic {
	return append(bus.T("hal", "capability", kind, 0), rest...)
}

// Publish announces every capability (retained info and state) and marks
// hal/state ready.
func (k *Kit) Publish(conn *bus.Connection) {
	now := timex.NowMs()
	for kind, info := range k.info {
		conn.Publish(conn.NewMessage(capTopic(kind, "info"), info, true))
		conn.Publish(conn.NewMessage(capTopic(kind, "state"),
			map[string]any{"link": "up", "ts_ms": now}, true))
	}
	conn.Publish(conn.NewMessage(bus.T("hal", "state"),
		map[string]any{"level": "ready", "status": "configured", "ts_ms": now}, true))
}

// Degraded marks one capability as faulty.
func (k *Kit) Degraded(conn *bus.Connection, kind string, err error) {
	conn.Publish(conn.NewMessage(capTopic(kind, "state"),
		map[string]any{"link": "degraded", "error": err.Error(), "ts_ms": timex.NowMs()}, true))
}

// WatchDisplay reports render faults until ctx is done. The first fault is
// returned so the caller can stop the kiosk.
func (k *Kit) WatchDisplay(ctx context.Context, conn *bus.Connection) error {
	select {
	case <-ctx.Done():
		return nil
	case err := <-k.Display.Faults():
		k.Degraded(conn, CapDisplay, err)
		return errcode.Hardware("display.render", err)
	}
}

// Close blanks the panel and releases the platform buses.
func (k *Kit) Close() error {
	err := k.Display.Clear()
	if k.closer != nil {
		err = errors.Join(err, k.closer.Close())
	}
	return err
}
