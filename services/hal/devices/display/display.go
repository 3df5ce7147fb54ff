// Package display renders one line of text on a small monochrome panel.
//
// Each Start spawns a render goroutine owned by the returned Task. Text that
// fits is drawn once, centred inside a lit border; longer text scrolls right
// to left and wraps once it has fully left the screen. Frames are serialised
// by a renderer-wide mutex and a cancelled task never draws again.
package display

import (
	"context"
	"image/color"
	"sync"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// Panel is a frame-buffered display (drivers/ssd1306.Device in production).
type Panel interface {
	drivers.Displayer
	ClearBuffer()
}

type Params struct {
	// Border is the width of the lit frame around static text. 0 draws no
	// frame; negative selects DefaultBorder.
	Border int16
	// Speed is the scroll distance in pixels per frame. Default 10.
	Speed int16
	// FrameInterval paces scrolling. Default 50 ms.
	FrameInterval time.Duration
	// Font defaults to proggy TinySZ8pt7b.
	Font tinyfont.Fonter
}

const DefaultBorder = 5

var (
	on  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	off = color.RGBA{}
)

type Renderer struct {
	mu     sync.Mutex // one frame at a time
	panel  Panel
	p      Params
	faults chan error
}

func New(panel Panel, p Params) *Renderer {
	if p.Border < 0 {
		p.Border = DefaultBorder
	}
	if p.Speed <= 0 {
		p.Speed = 10
	}
	if p.FrameInterval <= 0 {
		p.FrameInterval = 50 * time.Millisecond
	}
	if p.Font == nil {
		p.Font = &proggy.TinySZ8pt7b
	}
	return &Renderer{panel: panel, p: p, faults: make(chan error, 1)}
}

// Faults reports panel write errors. A faulting task stops rendering.
func (r *Renderer) Faults() <-chan error { return r.faults }

// Clear blanks the panel.
func (r *Renderer) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panel.ClearBuffer()
	return r.panel.Display()
}

// Task is a handle on one render goroutine.
type Task struct {
	text   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the task. It is idempotent and does not wait.
func (t *Task) Cancel() { t.cancel() }

// Done is closed once the render goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Text() string { return t.text }

// Start begins rendering text and returns immediately.
func (r *Renderer) Start(text string) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{text: text, cancel: cancel, done: make(chan struct{})}
	go r.run(ctx, t)
	return t
}

func (r *Renderer) run(ctx context.Context, t *Task) {
	defer close(t.done)
	defer t.cancel()

	w, h := r.panel.Size()
	_, tw := tinyfont.LineWidth(r.p.Font, t.text)
	textW := int16(tw)
	y := baseline(h, r.p.Font)

	if textW <= w {
		x := (w - textW) / 2
		_ = r.frame(ctx, func() {
			r.drawBorder(w, h)
			tinyfont.WriteLine(r.panel, r.p.Font, x, y, t.text, on)
		})
		return
	}

	tick := time.NewTicker(r.p.FrameInterval)
	defer tick.Stop()
	pos := w
	for {
		x := pos
		if err := r.frame(ctx, func() {
			tinyfont.WriteLine(r.panel, r.p.Font, x, y, t.text, on)
		}); err != nil {
			return
		}
		pos = scrollStep(pos, r.p.Speed, textW, w)
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// frame draws one frame under the renderer lock, unless ctx is already done.
func (r *Renderer) frame(ctx context.Context, draw func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	r.panel.ClearBuffer()
	draw()
	if err := r.panel.Display(); err != nil {
		select {
		case r.faults <- err:
		default:
		}
		return err
	}
	return nil
}

func (r *Renderer) drawBorder(w, h int16) {
	b := r.p.Border
	for y := int16(0); y < h; y++ {
		for x := int16(0); x < w; x++ {
			inside := x >= b && x < w-b && y >= b && y < h-b
			if !inside {
				r.panel.SetPixel(x, y, on)
			}
		}
	}
}

// scrollStep moves the text left by speed and wraps to the right edge once
// the text is fully off-screen.
func scrollStep(pos, speed, textW, screenW int16) int16 {
	pos -= speed
	if pos < -textW {
		pos = screenW
	}
	return pos
}

// baseline centres a single line vertically.
func baseline(h int16, f tinyfont.Fonter) int16 {
	lh := int16(f.GetYAdvance())
	return (h+lh)/2 - lh/4
}
