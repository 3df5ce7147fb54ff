// Package classifier maps a face image to one of a fixed set of labels.
//
// Inference itself is delegated to an Engine that returns one score per
// label; the classifier resizes the frame, runs the engine and takes the
// argmax.
package classifier

import (
	"context"
	"fmt"
	"image"

	"facebeer-go/errcode"

	xdraw "golang.org/x/image/draw"
)

// Engine scores an input frame. The result has one entry per label.
type Engine interface {
	Infer(ctx context.Context, img image.Image) ([]float64, error)
}

type Classifier struct {
	labels []string
	engine Engine
	size   int
}

// New binds labels to an engine. size is the square model input edge in
// pixels; 0 passes frames through unscaled.
func New(labels []string, engine Engine, size int) (*Classifier, error) {
	if len(labels) == 0 || engine == nil || size < 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "classifier.new"}
	}
	return &Classifier{labels: labels, engine: engine, size: size}, nil
}

func (c *Classifier) Labels() []string { return append([]string(nil), c.labels...) }

// Predict returns the raw label with the highest score and that score.
func (c *Classifier) Predict(ctx context.Context, img image.Image) (string, float64, error) {
	if img == nil {
		return "", 0, errcode.Hardware("classifier.predict", fmt.Errorf("no image"))
	}
	in := img
	if c.size > 0 {
		in = Resize(img, c.size)
	}
	scores, err := c.engine.Infer(ctx, in)
	if err != nil {
		return "", 0, errcode.Hardware("classifier.infer", err)
	}
	if len(scores) != len(c.labels) {
		return "", 0, errcode.Hardware("classifier.infer",
			fmt.Errorf("engine returned %d scores for %d labels", len(scores), len(c.labels)))
	}
	i := argmax(scores)
	return c.labels[i], scores[i], nil
}

// resampler is the kernel Resize scales with.
var resampler xdraw.Interpolator = xdraw.CatmullRom

// Resize scales img to a size x size RGBA frame, ignoring aspect ratio.
func Resize(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	resampler.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// argmax returns the first index of the largest score.
func argmax(xs []float64) int {
	best := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}
