// cmd/boardtest/main.go
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image/jpeg"
	"os"
	"strings"
	"time"

	"facebeer-go/bus"
	"facebeer-go/services/config"
	"facebeer-go/services/hal"
	"facebeer-go/x/mathx"
)

// ---------- Configuration ----------

const (
	halReadyTimeout = 5 * time.Second

	// Gas sensor sampling
	gasSamples  = 50
	gasInterval = 20 * time.Millisecond

	// How long an operator has to press the button
	buttonTimeout = 15 * time.Second

	// Dwell on the verdict before blanking the panel
	verdictDwell = 3 * time.Second
)

// ---------- Topics ----------

func tHalState() bus.Topic { return bus.T("hal", "state") }

// ---------- Helpers ----------

func waitHALReady(c *bus.Connection, d time.Duration) bool {
	sub := c.Subscribe(tHalState())
	defer c.Unsubscribe(sub)

	dead := time.After(d)
	for {
		select {
		case m := <-sub.Channel():
			if st, ok := m.Payload.(map[string]any); ok && st["level"] == "ready" {
				return true
			}
		case <-dead:
			return false
		}
	}
}

// checkGas samples the sensor and reports the peak. A dead ADC fails; a
// flat zero is only a warning since clean air reads zero after clamping.
func checkGas(k *hal.Kit) error {
	peak := 0.0
	for i := 0; i < gasSamples; i++ {
		v, err := k.Gas.Read()
		if err != nil {
			return err
		}
		peak = mathx.Max(peak, v)
		time.Sleep(gasInterval)
	}
	println("[gas] peak over", gasSamples, "samples:", fmt.Sprintf("%.4f", peak))
	if peak == 0 {
		println("[gas] warning: all samples clamped to zero")
	}
	return nil
}

func checkButton(k *hal.Kit) error {
	task := k.Display.Start("press button")
	defer task.Cancel()

	println("[button] waiting for a press on GPIO", k.Button.Pin())
	dead := time.Now().Add(buttonTimeout)
	for time.Now().Before(dead) {
		if k.Button.Pressed() {
			println("[button] pressed")
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("no press within %s", buttonTimeout)
}

func checkCamera(ctx context.Context, k *hal.Kit, path string) error {
	task := k.Display.Start("smile")
	defer task.Cancel()

	img, err := k.Camera.Capture(ctx)
	if err != nil {
		return err
	}
	b := img.Bounds()
	println("[camera] captured", b.Dx(), "x", b.Dy())
	if path == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ---------- Main ----------

func main() {
	skipCamera := flag.Bool("skip-camera", false, "do not run the camera check")
	savePath := flag.String("save", "", "write the captured frame to this JPEG file")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("FACEBEER_CONFIG"))
	if err != nil {
		println("[boardtest] config:", err.Error())
		os.Exit(2)
	}

	kit, err := hal.Open(cfg.Hardware)
	if err != nil {
		println("[boardtest] hardware:", err.Error())
		os.Exit(1)
	}
	defer kit.Close()

	b := bus.NewBus(8)
	halConn := b.NewConnection("hal")
	kit.Publish(halConn)
	if !waitHALReady(b.NewConnection("ui"), halReadyTimeout) {
		println("[boardtest] HAL not ready within timeout; continuing")
	}

	ctx := context.Background()
	checks := []struct {
		name string
		run  func() error
	}{
		{"display", func() error {
			t := kit.Display.Start("boardtest")
			time.Sleep(time.Second)
			t.Cancel()
			return nil
		}},
		{"gas", func() error { return checkGas(kit) }},
		{"button", func() error { return checkButton(kit) }},
	}
	if !*skipCamera {
		checks = append(checks, struct {
			name string
			run  func() error
		}{"camera", func() error { return checkCamera(ctx, kit, *savePath) }})
	}

	var failed []string
	for _, c := range checks {
		println("=== boardtest:", c.name, "===")
		if err := c.run(); err != nil {
			println("[FAIL]", c.name+":", err.Error())
			kit.Degraded(halConn, c.name, err)
			failed = append(failed, c.name)
			continue
		}
		println("[PASS]", c.name)
	}

	verdict := "PASS"
	if len(failed) > 0 {
		verdict = "FAIL " + strings.Join(failed, ",")
	}
	println("[boardtest]", verdict)
	t := kit.Display.Start(verdict)
	time.Sleep(verdictDwell)
	t.Cancel()

	if len(failed) > 0 {
		kit.Close()
		os.Exit(1)
	}
}
