package kiosk

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeButton struct {
	mu      sync.Mutex
	pressed bool
}

func (b *fakeButton) Pressed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pressed
}

func (b *fakeButton) set(v bool) {
	b.mu.Lock()
	b.pressed = v
	b.mu.Unlock()
}

type fakeCamera struct {
	img   image.Image
	err   error
	calls int
}

func (c *fakeCamera) Capture(context.Context) (image.Image, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.img, nil
}

// fakeGas replays vals, then repeats the last one.
type fakeGas struct {
	vals  []float64
	i     int
	err   error
	reads int
}

func (g *fakeGas) Read() (float64, error) {
	g.reads++
	if g.err != nil {
		return 0, g.err
	}
	if len(g.vals) == 0 {
		return 0, nil
	}
	v := g.vals[min(g.i, len(g.vals)-1)]
	g.i++
	return v, nil
}

type fakeClassifier struct {
	label string
	conf  float64
	err   error
	got   image.Image
}

func (c *fakeClassifier) Predict(_ context.Context, img image.Image) (string, float64, error) {
	c.got = img
	return c.label, c.conf, c.err
}

type recordCall struct {
	name  string
	value float64
}

type fakeRecorder struct {
	calls []recordCall
	code  int
	err   error
}

func (r *fakeRecorder) Record(_ context.Context, name string, value float64) (int, error) {
	r.calls = append(r.calls, recordCall{name, value})
	return r.code, r.err
}

type fakeTask struct {
	text      string
	cancelled atomic.Int32
}

func (t *fakeTask) Cancel() { t.cancelled.Add(1) }

func (t *fakeTask) live() bool { return t.cancelled.Load() == 0 }

// fakeDisplay records every task and flags overlapping live tasks.
type fakeDisplay struct {
	mu       sync.Mutex
	tasks    []*fakeTask
	overlaps int
}

func (d *fakeDisplay) Start(text string) DisplayTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tasks {
		if t.live() {
			d.overlaps++
		}
	}
	t := &fakeTask{text: text}
	d.tasks = append(d.tasks, t)
	return t
}

func (d *fakeDisplay) texts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.tasks))
	for i, t := range d.tasks {
		out[i] = t.text
	}
	return out
}

func (d *fakeDisplay) liveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, t := range d.tasks {
		if t.live() {
			n++
		}
	}
	return n
}

type rig struct {
	button *fakeButton
	camera *fakeCamera
	gas    *fakeGas
	model  *fakeClassifier
	rec    *fakeRecorder
	disp   *fakeDisplay
}

func newRig() *rig {
	return &rig{
		button: &fakeButton{},
		camera: &fakeCamera{img: image.NewGray(image.Rect(0, 0, 4, 4))},
		gas:    &fakeGas{},
		model:  &fakeClassifier{label: "grant", conf: 0.95},
		rec:    &fakeRecorder{code: 200},
		disp:   &fakeDisplay{},
	}
}

func (r *rig) deps() Deps {
	return Deps{
		Button:     r.button,
		Camera:     r.camera,
		Gas:        r.gas,
		Classifier: r.model,
		Recorder:   r.rec,
		Display:    r.disp,
	}
}

func step(t *testing.T, c *Controller) {
	t.Helper()
	if err := c.Step(context.Background()); err != nil {
		t.Fatalf("Step in %v: %v", c.Session().State, err)
	}
}
