package telemetry

import (
	"facebeer-go/services/kiosk"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups all Prometheus instruments fed from kiosk events.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	CurrentState    *prometheus.GaugeVec
	Resets          *prometheus.CounterVec
	Identifications *prometheus.CounterVec
	Confidence      prometheus.Histogram
	RemoteWrites    *prometheus.CounterVec
	BAC             prometheus.Histogram
	Samples         prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "State machine transitions by target state.",
		}, []string{"to"}),
		CurrentState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current controller state, 0 otherwise.",
		}, []string{"state"}),
		Resets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Session resets by reason.",
		}, []string{"reason"}),
		Identifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifications_total",
			Help:      "Classifier outcomes after the guest rule.",
		}, []string{"kind"}),
		Confidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identification_confidence",
			Help:      "Confidence reported for the shown identity.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		RemoteWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_writes_total",
			Help:      "Recorder calls by outcome.",
		}, []string{"outcome"}),
		BAC: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bac",
			Help:      "Peak BAC per completed session.",
			Buckets:   []float64{0.01, 0.02, 0.04, 0.06, 0.08, 0.1, 0.15, 0.2, 0.3},
		}),
		Samples: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blow_samples",
			Help:      "Gas sensor samples taken per BLOW window.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 10),
		}),
	}
}

func (m *Metrics) observeState(ev kiosk.StateEvent) {
	if ev.From != ev.To {
		m.Transitions.WithLabelValues(ev.To.String()).Inc()
	}
	for s := kiosk.Initial; s <= kiosk.Done; s++ {
		v := 0.0
		if s == ev.To {
			v = 1
		}
		m.CurrentState.WithLabelValues(s.String()).Set(v)
	}
}

func (m *Metrics) observeIdentified(ev kiosk.IdentifiedEvent) {
	kind := "known"
	if ev.Guest {
		kind = "guest"
	}
	m.Identifications.WithLabelValues(kind).Inc()
	m.Confidence.Observe(ev.Confidence)
}

func (m *Metrics) observeResult(ev kiosk.ResultEvent) {
	outcome := "ok"
	if ev.Err != "" {
		outcome = "error"
	}
	m.RemoteWrites.WithLabelValues(outcome).Inc()
	m.BAC.Observe(ev.BAC)
	m.Samples.Observe(float64(ev.Samples))
}
