package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics shared by the queue and the worker.
type Metrics struct {
	// submittedTotal counts Submit calls, partitioned by result:
	// "accepted", "rejected" or "closed".
	submittedTotal *prometheus.CounterVec

	// queueDepth is the number of jobs waiting for the worker.
	queueDepth prometheus.Gauge

	// finishedTotal counts jobs that reached a terminal state, partitioned
	// by status: "complete" or "error".
	finishedTotal *prometheus.CounterVec

	// durationSeconds records submission-to-completion latency.
	durationSeconds *prometheus.HistogramVec
}

// NewMetrics registers the job metrics against reg. A nil reg uses a private
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		submittedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "jobs",
			Name:      "submitted_total",
			Help:      "Job submissions, partitioned by result.",
		}, []string{"result"}),

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "quoteseek",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Number of jobs waiting for the worker.",
		}),

		finishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Jobs that reached a terminal state, partitioned by status.",
		}, []string{"status"}),

		durationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quoteseek",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Time from job submission to completion.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
	}
}
