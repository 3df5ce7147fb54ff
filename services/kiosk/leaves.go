package kiosk

import (
	"context"
	"image"
)

// Button reports whether the button is held right now. Must not block.
type Button interface {
	Pressed() bool
}

// Camera blocks until a frame is captured.
type Camera interface {
	Capture(ctx context.Context) (image.Image, error)
}

// GasSensor returns a non-negative concentration estimate.
type GasSensor interface {
	Read() (float64, error)
}

// Classifier returns the raw label and its confidence in [0,1].
type Classifier interface {
	Predict(ctx context.Context, img image.Image) (label string, confidence float64, err error)
}

// Recorder appends a result remotely and passes the backend's status through.
type Recorder interface {
	Record(ctx context.Context, name string, value float64) (code int, err error)
}

// Display starts rendering text and returns at once.
type Display interface {
	Start(text string) DisplayTask
}

// DisplayTask is cancelled at most once per state; Cancel must be idempotent
// and must not wait for the renderer.
type DisplayTask interface {
	Cancel()
}

// DisplayFunc adapts a function (typically a renderer's Start) to Display.
type DisplayFunc func(text string) DisplayTask

func (f DisplayFunc) Start(text string) DisplayTask { return f(text) }
