package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hlv-labs/phase-readiness/go-middleware/internal/readiness"
)

// #region metrics

// Metrics exports evaluation counters on a private registry, so tests and
// embedders never collide with the global default registry.
type Metrics struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	failsafes   prometheus.Counter
	readiness   prometheus.Gauge
}

// NewMetrics creates and registers the evaluation metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "readiness",
			Name:      "evaluations_total",
			Help:      "Evaluations processed, labeled by resulting gate.",
		}, []string{"gate"}),
		failsafes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "readiness",
			Name:      "failsafe_total",
			Help:      "Evaluations that produced a fail-safe output.",
		}),
		readiness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "readiness",
			Name:      "score",
			Help:      "Most recent readiness score.",
		}),
	}
	m.registry.MustRegister(m.evaluations, m.failsafes, m.readiness)
	return m
}

// Observe records one evaluation outcome.
func (m *Metrics) Observe(out readiness.Output) {
	m.evaluations.WithLabelValues(out.Gate.String()).Inc()
	if out.Flags.Has(readiness.FlagFailsafeDefault) {
		m.failsafes.Inc()
	}
	m.readiness.Set(out.Readiness)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// #endregion metrics
