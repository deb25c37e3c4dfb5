package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// pipelineMetrics holds the Prometheus metrics owned by the orchestrator.
type pipelineMetrics struct {
	// runsTotal counts Process calls, partitioned by outcome: "ok" or "error".
	runsTotal *prometheus.CounterVec

	// attemptsTotal counts top-level attempts, partitioned by result:
	// "ok", "no_passages", "parse_error", "no_verified", "upstream_error".
	attemptsTotal *prometheus.CounterVec

	// generationCallsTotal counts generation client invocations.
	generationCallsTotal prometheus.Counter

	// promptTokens records the estimated token size of each user prompt.
	promptTokens prometheus.Histogram

	// quotesVerified records the number of quotes returned per successful run.
	quotesVerified prometheus.Histogram
}

func newPipelineMetrics(reg prometheus.Registerer) *pipelineMetrics {
	factory := promauto.With(reg)

	return &pipelineMetrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed pipeline runs, partitioned by outcome.",
		}, []string{"outcome"}),

		attemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "pipeline",
			Name:      "attempts_total",
			Help:      "Top-level pipeline attempts, partitioned by result.",
		}, []string{"result"}),

		generationCallsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "pipeline",
			Name:      "generation_calls_total",
			Help:      "Number of calls made to the generation model.",
		}),

		promptTokens: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quoteseek",
			Subsystem: "pipeline",
			Name:      "prompt_tokens_estimated",
			Help:      "Estimated token size of the generation prompt.",
			Buckets:   []float64{500, 1000, 2000, 4000, 8000, 16000, 32000},
		}),

		quotesVerified: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quoteseek",
			Subsystem: "pipeline",
			Name:      "quotes_verified",
			Help:      "Number of verified quotes returned per successful run.",
			Buckets:   []float64{1, 2, 4, 6, 8, 12, 16},
		}),
	}
}
