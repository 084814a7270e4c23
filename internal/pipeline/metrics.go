package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics owned by the pipeline. A single
// instance is created per process and shared by every run; tests register
// against a fresh prometheus.Registry to stay hermetic.
type Metrics struct {
	// eventsTotal counts completed pipeline runs, partitioned by outcome.
	eventsTotal *prometheus.CounterVec

	// runDurationSeconds records the wall-clock duration of each run from
	// event receipt to terminal outcome.
	runDurationSeconds *prometheus.HistogramVec
}

// NewMetrics registers the pipeline metrics against reg and returns the
// populated Metrics. promauto.With(reg) is used so each call registers into
// the provided registry rather than the global default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "imgsearch",
			Subsystem: "pipeline",
			Name:      "events_total",
			Help:      "Total number of pipeline runs completed, partitioned by outcome.",
		}, []string{"outcome"}),

		runDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "imgsearch",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs from event receipt to terminal outcome.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"outcome"}),
	}
}

// observe records one completed run.
func (m *Metrics) observe(outcome Outcome, elapsed time.Duration) {
	m.eventsTotal.WithLabelValues(string(outcome)).Inc()
	m.runDurationSeconds.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}
