// Package camera captures stills by running the platform's still-capture
// command and decoding the JPEG it writes to stdout.
package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"strconv"
	"strings"
	"time"

	"facebeer-go/errcode"
	"facebeer-go/x/execx"

	"github.com/google/shlex"
)

// DefaultCommand targets rpicam-still. Placeholders are expanded per capture.
const DefaultCommand = "rpicam-still -n -e jpg -o - --width {width} --height {height} -t {warmup_ms}"

type Params struct {
	Command string
	Width   int
	Height  int
	// Warmup is the preview time the sensor gets before the shot.
	Warmup time.Duration
	// Timeout bounds one capture, warm-up included. Default Warmup + 10s.
	Timeout time.Duration
}

// Runner executes argv and returns its stdout.
type Runner func(ctx context.Context, argv []string) ([]byte, error)

type Device struct {
	argv    []string
	timeout time.Duration
	run     Runner
}

func New(p Params) (*Device, error) {
	return NewWithRunner(p, ExecRunner)
}

// NewWithRunner is New with an injectable process runner.
func NewWithRunner(p Params, run Runner) (*Device, error) {
	if p.Command == "" {
		p.Command = DefaultCommand
	}
	if p.Width <= 0 || p.Height <= 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "camera.new", Msg: "bad resolution"}
	}
	if p.Timeout <= 0 {
		p.Timeout = p.Warmup + 10*time.Second
	}
	argv, err := shlex.Split(p.Command)
	if err != nil || len(argv) == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "camera.new", Msg: "bad command", Err: err}
	}
	rep := strings.NewReplacer(
		"{width}", strconv.Itoa(p.Width),
		"{height}", strconv.Itoa(p.Height),
		"{warmup_ms}", strconv.FormatInt(p.Warmup.Milliseconds(), 10),
	)
	for i, a := range argv {
		argv[i] = rep.Replace(a)
	}
	return &Device{argv: argv, timeout: p.Timeout, run: run}, nil
}

// Argv returns the expanded command line.
func (d *Device) Argv() []string { return append([]string(nil), d.argv...) }

// Capture blocks until the command exits and returns the decoded frame.
func (d *Device) Capture(ctx context.Context) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	out, err := d.run(ctx, d.argv)
	if err != nil {
		return nil, errcode.Hardware("camera.capture", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, errcode.Hardware("camera.decode", err)
	}
	return img, nil
}

// ExecRunner runs argv as a child process and rejects empty output.
func ExecRunner(ctx context.Context, argv []string) ([]byte, error) {
	out, err := execx.Run(ctx, argv, nil)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New(argv[0] + ": empty output")
	}
	return out, nil
}
