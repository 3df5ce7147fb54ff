// Package kiosk runs the FaceBeer session cycle: selfie, identification,
// confirmation, breath sampling and remote recording.
//
// One Controller goroutine owns the Session. Leaves sit behind the narrow
// interfaces in leaves.go; display tasks run concurrently but only ever see
// the text they were started with.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"facebeer-go/bus"
	"facebeer-go/errcode"
	"facebeer-go/x/mathx"
	"facebeer-go/x/timex"

	"github.com/jonboulle/clockwork"
)

// Timings of the cycle. The displayed texts say "10s" regardless.
type Timings struct {
	ConfirmWindow time.Duration // IDENTIFIED -> reset when strictly exceeded
	BlowWindow    time.Duration // sampling length in BLOW
	Settle        time.Duration // pause at start-up and after a confirmed reset
	Poll          time.Duration // pause between steps; 0 spins
}

func DefaultTimings() Timings {
	return Timings{
		ConfirmWindow: 10 * time.Second,
		BlowWindow:    10 * time.Second,
		Settle:        2 * time.Second,
		Poll:          10 * time.Millisecond,
	}
}

// Deps are the leaf components. All are required.
type Deps struct {
	Button     Button
	Camera     Camera
	Gas        GasSensor
	Classifier Classifier
	Recorder   Recorder
	Display    Display
}

type Option func(*Controller)

func WithClock(c clockwork.Clock) Option  { return func(k *Controller) { k.clock = c } }
func WithLogger(l *slog.Logger) Option    { return func(k *Controller) { k.log = l } }
func WithTimings(t Timings) Option        { return func(k *Controller) { k.t = t } }
func WithBus(conn *bus.Connection) Option { return func(k *Controller) { k.conn = conn } }

type Controller struct {
	d         Deps
	threshold float64
	t         Timings
	clock     clockwork.Clock
	log       *slog.Logger
	conn      *bus.Connection

	sess *Session
}

func New(d Deps, threshold float64, opts ...Option) (*Controller, error) {
	if d.Button == nil || d.Camera == nil || d.Gas == nil || d.Classifier == nil || d.Recorder == nil || d.Display == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "kiosk.new", Msg: "missing leaf component"}
	}
	if !(threshold > 0 && threshold < 1) {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "kiosk.new", Msg: fmt.Sprintf("threshold %v not in (0,1)", threshold)}
	}
	c := &Controller{
		d:         d,
		threshold: threshold,
		t:         DefaultTimings(),
		clock:     clockwork.NewRealClock(),
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("svc", "kiosk")
	c.sess = c.newSession()
	return c, nil
}

// Session returns the live session. Only safe from the controller goroutine
// or once Run has returned.
func (c *Controller) Session() *Session { return c.sess }

// Run settles, then steps until ctx is cancelled or a leaf fails. A
// cancelled context is a clean stop and returns nil.
func (c *Controller) Run(ctx context.Context) error {
	defer func() { c.sess.cancelDisplay() }()

	c.log.Info("starting main loop", "threshold", c.threshold)
	c.publishState(c.sess.State, c.sess.State)
	if err := c.sleep(ctx, c.t.Settle); err != nil {
		return nil
	}
	for {
		if err := c.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.sleep(ctx, c.t.Poll); err != nil {
			return nil
		}
	}
}

// Step runs one iteration of the state machine.
func (c *Controller) Step(ctx context.Context) error {
	s := c.sess
	switch s.State {
	case Initial:
		c.show(TextInitial)
		if c.d.Button.Pressed() {
			c.log.Info("selfie button pressed", "session", s.ID)
			c.transition(Selfie)
		}

	case Selfie:
		c.show(TextSelfie)
		c.log.Info("taking picture", "session", s.ID)
		img, err := c.d.Camera.Capture(ctx)
		if err != nil {
			return hardware("camera.capture", err)
		}
		s.Image = img
		c.transition(ML)

	case ML:
		c.show(TextThinking)
		label, conf, err := c.d.Classifier.Predict(ctx, s.Image)
		if err != nil {
			return hardware("classifier.predict", err)
		}
		s.RawLabel = label
		s.Identity, s.Confidence, s.Guest = NormalizeIdentity(label, conf, s.GuestThreshold)
		s.IdentifiedAt = c.clock.Now()
		c.log.Info("identified",
			"session", s.ID, "label", label, "raw_confidence", conf,
			"name", s.Identity, "confidence", s.Confidence, "guest", s.Guest)
		c.publish(TopicIdentified, IdentifiedEvent{
			SessionID:  s.ID,
			RawLabel:   label,
			Name:       s.Identity,
			Confidence: s.Confidence,
			Guest:      s.Guest,
			TSms:       timex.Ms(s.IdentifiedAt),
		})
		c.transition(Identified)

	case Identified:
		c.show(IdentifiedText(s.Identity))
		// Timeout first: a press on the deadline still resets.
		if c.clock.Since(s.IdentifiedAt) > c.t.ConfirmWindow {
			c.log.Info("not confirmed, resetting", "session", s.ID)
			c.reset(ReasonTimeout)
			return nil
		}
		if c.d.Button.Pressed() {
			c.log.Info("blow button pressed", "session", s.ID)
			s.BlowStartedAt = c.clock.Now()
			c.transition(Blow)
		}

	case Blow:
		c.show(TextBlow)
		if c.clock.Since(s.BlowStartedAt) < c.t.BlowWindow {
			v, err := c.d.Gas.Read()
			if err != nil {
				return hardware("gassensor.read", err)
			}
			s.Readings = append(s.Readings, v)
			return nil
		}
		c.finishBlow(ctx)

	case Done:
		c.show(DoneText(s.FinalBAC))
		if c.d.Button.Pressed() {
			c.log.Info("done button pressed, resetting", "session", s.ID)
			c.reset(ReasonConfirmed)
			return c.sleep(ctx, c.t.Settle)
		}

	default:
		panic(fmt.Sprintf("kiosk: unreachable state %v", s.State))
	}
	return nil
}

// finishBlow fixes the result, records it and moves to DONE. A failed remote
// write is logged and the cycle goes on.
func (c *Controller) finishBlow(ctx context.Context) {
	s := c.sess
	bac, ok := PeakBAC(s.Readings)
	if !ok {
		c.log.Warn("no readings in blow window", "session", s.ID)
	}
	s.FinalBAC, s.HasFinalBAC = bac, true

	ev := ResultEvent{
		SessionID:  s.ID,
		Name:       s.Identity,
		Confidence: s.Confidence,
		BAC:        bac,
		Samples:    len(s.Readings),
		TSms:       timex.Ms(c.clock.Now()),
	}
	code, err := c.d.Recorder.Record(ctx, s.Identity, bac)
	ev.Code = code
	if err != nil {
		ev.Err = err.Error()
		c.log.Error("remote write failed", "session", s.ID, "name", s.Identity, "bac", bac, "err", err)
	} else {
		c.log.Info("max BAC found", "session", s.ID, "name", s.Identity, "bac", bac, "samples", len(s.Readings), "code", code)
	}
	c.publish(TopicResult, ev)
	c.transition(Done)
}

// show starts a display task for text unless it is already on screen. The
// previous task is cancelled before the new one starts.
func (c *Controller) show(text string) {
	s := c.sess
	if s.DisplayedText == text {
		return
	}
	s.cancelDisplay()
	s.display = c.d.Display.Start(text)
	s.DisplayedText = text
}

func (c *Controller) transition(to State) {
	s := c.sess
	from := s.State
	if !CanTransition(from, to) {
		panic(fmt.Sprintf("kiosk: illegal transition %v -> %v", from, to))
	}
	s.TransitionTo(to)
	c.log.Debug("set state", "session", s.ID, "from", from, "to", to)
	c.publishState(from, to)
}

// reset returns to INITIAL with a brand-new session.
func (c *Controller) reset(reason string) {
	old := c.sess
	from := old.State
	c.transition(Initial)
	c.publish(TopicReset, ResetEvent{SessionID: old.ID, From: from, Reason: reason, TSms: timex.Ms(c.clock.Now())})
	c.sess = c.newSession()
}

func (c *Controller) newSession() *Session {
	hint := 0
	if c.t.Poll > 0 {
		hint = int(c.t.BlowWindow / c.t.Poll)
	}
	return NewSession(c.threshold, mathx.Clamp(hint, 0, 4096))
}

func (c *Controller) publishState(from, to State) {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(TopicState, StateEvent{
		SessionID: c.sess.ID,
		From:      from,
		To:        to,
		TSms:      timex.Ms(c.clock.Now()),
	}, true))
}

func (c *Controller) publish(t bus.Topic, payload any) {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(t, payload, false))
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}

// hardware tags leaf failures as fatal unless the leaf already classified them.
func hardware(op string, err error) error {
	var e *errcode.E
	if errors.As(err, &e) {
		return err
	}
	return errcode.Hardware(op, err)
}
