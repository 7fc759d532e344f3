package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Render outcomes.
const (
	RenderSucceeded = "succeeded"
	RenderFailed    = "failed"
	RenderTimedOut  = "timed_out"
)

var (
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resume_typesetter",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Typst compilation latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	rendersInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resume_typesetter",
			Subsystem: "render",
			Name:      "in_progress",
			Help:      "Compilations currently running.",
		},
	)

	fragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resume_typesetter",
			Subsystem: "library",
			Name:      "fragments_total",
			Help:      "Fragments processed by bulk saves, by result.",
		},
		[]string{"result"},
	)
)

// StartRender marks a compilation as running and returns a func recording its outcome.
func StartRender() func(outcome string) {
	start := time.Now()
	rendersInProgress.Inc()
	return func(outcome string) {
		rendersInProgress.Dec()
		renderDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

// ObserveSave records the result counts of one bulk save.
func ObserveSave(saved, skipped, failed int) {
	fragmentsTotal.WithLabelValues("saved").Add(float64(saved))
	fragmentsTotal.WithLabelValues("skipped").Add(float64(skipped))
	fragmentsTotal.WithLabelValues("failed").Add(float64(failed))
}
