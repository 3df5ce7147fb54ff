package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"facebeer-go/bus"
	"facebeer-go/services/heartbeat"
	"facebeer-go/services/journal"
	"facebeer-go/services/kiosk"
)

type fakeJournal struct {
	rows []journal.Entry
	err  error
	n    int
}

func (f *fakeJournal) Recent(_ context.Context, n int) ([]journal.Entry, error) {
	f.n = n
	return f.rows, f.err
}

func newTestService(j Journal) *Service {
	return New(Options{Journal: j, Logger: slog.New(slog.DiscardHandler)})
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(rec.Body)
	return rec.Code, string(body)
}

func msg(payload any) *bus.Message { return &bus.Message{Payload: payload} }

func TestMetricsFromEvents(t *testing.T) {
	s := newTestService(nil)
	s.Observe(msg(kiosk.StateEvent{From: kiosk.Initial, To: kiosk.Selfie}))
	s.Observe(msg(kiosk.StateEvent{From: kiosk.Selfie, To: kiosk.Selfie}))
	s.Observe(msg(kiosk.IdentifiedEvent{Name: "Guest", Guest: true, Confidence: 0.4}))
	s.Observe(msg(kiosk.ResultEvent{BAC: 0.045, Samples: 900, Err: "remote_write: refused"}))
	s.Observe(msg(kiosk.ResetEvent{Reason: kiosk.ReasonTimeout}))
	s.Observe(msg("ignored"))

	code, body := get(t, s.Router(), "/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics = %d", code)
	}
	for _, want := range []string{
		`facebeer_state_transitions_total{to="SELFIE"} 1`,
		`facebeer_state{state="SELFIE"} 1`,
		`facebeer_state{state="INITIAL"} 0`,
		`facebeer_identifications_total{kind="guest"} 1`,
		`facebeer_remote_writes_total{outcome="error"} 1`,
		`facebeer_resets_total{reason="timeout"} 1`,
		`facebeer_bac_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStatusAndHealth(t *testing.T) {
	j := &fakeJournal{rows: []journal.Entry{{SessionID: "s1", Name: "Grant", BAC: 0.045}}}
	s := newTestService(j)
	s.Observe(msg(kiosk.StateEvent{SessionID: "s2", From: kiosk.ML, To: kiosk.Identified}))

	code, body := get(t, s.Router(), "/healthz")
	if code != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("/healthz = %d %s", code, body)
	}

	code, body = get(t, s.Router(), "/status")
	if code != http.StatusOK {
		t.Fatalf("/status = %d", code)
	}
	var st Status
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if st.State == nil || st.State.To != kiosk.Identified || st.State.SessionID != "s2" {
		t.Fatalf("state = %+v", st.State)
	}
	if len(st.Recent) != 1 || st.Recent[0].Name != "Grant" || j.n != recentRows {
		t.Fatalf("recent = %+v (n=%d)", st.Recent, j.n)
	}
	if !strings.Contains(body, `"to":"IDENTIFIED"`) {
		t.Fatalf("state should render by name: %s", body)
	}
}

func TestStatusSurvivesJournalError(t *testing.T) {
	s := newTestService(&fakeJournal{err: errors.New("locked")})
	code, body := get(t, s.Router(), "/status")
	if code != http.StatusOK || !strings.Contains(body, `"state":null`) {
		t.Fatalf("/status = %d %s", code, body)
	}
}

func TestConsumeSeesRetainedState(t *testing.T) {
	b := bus.NewBus(8)
	pub := b.NewConnection("kiosk")
	pub.Publish(pub.NewMessage(kiosk.TopicState, kiosk.StateEvent{From: kiosk.Blow, To: kiosk.Done}, true))
	pub.Publish(pub.NewMessage(heartbeat.Topic, heartbeat.Beat{Seq: 3}, true))

	s := newTestService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Consume(ctx, b.NewConnection("telemetry")) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := s.snapshot(context.Background())
		if st.State != nil && st.State.To == kiosk.Done && st.Heartbeat != nil && st.Heartbeat.Seq == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("retained state never observed")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Consume = %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
