// Package telemetry turns kiosk bus events into Prometheus metrics and serves
// them, together with a JSON status page, over HTTP.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"facebeer-go/bus"
	"facebeer-go/services/heartbeat"
	"facebeer-go/services/journal"
	"facebeer-go/services/kiosk"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const recentRows = 10

// Journal is the read side of the local result journal.
type Journal interface {
	Recent(ctx context.Context, n int) ([]journal.Entry, error)
}

type Options struct {
	Registry *prometheus.Registry // nil: a fresh registry
	Journal  Journal              // nil: /status omits recent rows
	Logger   *slog.Logger
}

// Status is the /status document.
type Status struct {
	State          *kiosk.StateEvent      `json:"state"`
	LastIdentified *kiosk.IdentifiedEvent `json:"last_identified,omitempty"`
	LastResult     *kiosk.ResultEvent     `json:"last_result,omitempty"`
	LastReset      *kiosk.ResetEvent      `json:"last_reset,omitempty"`
	Recent         []journal.Entry        `json:"recent,omitempty"`
	Heartbeat      *heartbeat.Beat        `json:"heartbeat,omitempty"`
	UptimeSeconds  int64                  `json:"uptime_s"`
}

type Service struct {
	reg     *prometheus.Registry
	metrics *Metrics
	journal Journal
	log     *slog.Logger
	started time.Time

	mu   sync.Mutex
	last Status
}

func New(opts Options) *Service {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		reg:     reg,
		metrics: NewMetrics(reg, "facebeer"),
		journal: opts.Journal,
		log:     log.With("svc", "telemetry"),
		started: time.Now(),
	}
}

// Observe folds one kiosk event into the metrics and the status snapshot.
func (s *Service) Observe(msg *bus.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev := msg.Payload.(type) {
	case kiosk.StateEvent:
		s.metrics.observeState(ev)
		s.last.State = &ev
	case kiosk.IdentifiedEvent:
		s.metrics.observeIdentified(ev)
		s.last.LastIdentified = &ev
	case kiosk.ResultEvent:
		s.metrics.observeResult(ev)
		s.last.LastResult = &ev
	case kiosk.ResetEvent:
		s.metrics.Resets.WithLabelValues(ev.Reason).Inc()
		s.last.LastReset = &ev
	case heartbeat.Beat:
		s.last.Heartbeat = &ev
	}
}

// Consume observes every kiosk/# message and the heartbeat until ctx is done.
func (s *Service) Consume(ctx context.Context, conn *bus.Connection) error {
	sub := conn.Subscribe(bus.T("kiosk", bus.WildRest))
	beatSub := conn.Subscribe(heartbeat.Topic)
	defer conn.Unsubscribe(sub)
	defer conn.Unsubscribe(beatSub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			s.Observe(m)
		case m, ok := <-beatSub.Channel():
			if !ok {
				return nil
			}
			s.Observe(m)
		}
	}
}

func (s *Service) snapshot(ctx context.Context) Status {
	s.mu.Lock()
	st := s.last
	s.mu.Unlock()
	st.UptimeSeconds = int64(time.Since(s.started).Seconds())
	if s.journal != nil {
		rows, err := s.journal.Recent(ctx, recentRows)
		if err != nil {
			s.log.Warn("journal read failed", "err", err)
		}
		st.Recent = rows
	}
	return st
}

func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg}))
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.snapshot(r.Context()))
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Service) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
