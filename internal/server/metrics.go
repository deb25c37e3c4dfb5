// Package server: metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the chi route pattern rather than the raw URL path, so job IDs do not
	// explode label cardinality.
	labelHandler = "handler"

	// unmatchedRoute labels requests that no route matched.
	unmatchedRoute = "unmatched"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// queryRequestsTotal counts POST /api/query requests, partitioned by
	// outcome: "cached", "queued", "invalid", "rejected" or "error".
	queryRequestsTotal *prometheus.CounterVec

	// jobPollsTotal counts GET /api/jobs/{id} requests, partitioned by the
	// job status returned or "not_found".
	jobPollsTotal *prometheus.CounterVec

	// rateLimitedTotal counts requests refused by the per-IP limiter,
	// partitioned by route.
	rateLimitedTotal *prometheus.CounterVec

	// dependencyUp is 1 when the named readiness probe last succeeded.
	dependencyUp *prometheus.GaugeVec

	// httpRequestsTotal counts all HTTP requests handled by the router,
	// partitioned by method, route pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) registers into the provided
// registry rather than the global default, which keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "api",
			Name:      "query_requests_total",
			Help:      "Total number of POST /api/query requests, partitioned by outcome.",
		}, []string{"outcome"}),

		jobPollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "api",
			Name:      "job_polls_total",
			Help:      "Total number of job polls, partitioned by the status returned.",
		}, []string{"status"}),

		rateLimitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-IP rate limiter, partitioned by route.",
		}, []string{"route"}),

		dependencyUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quoteseek",
			Subsystem: "api",
			Name:      "dependency_up",
			Help:      "Result of the last readiness probe per dependency (1 up, 0 down).",
		}, []string{"dependency"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoteseek",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quoteseek",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument is a chi middleware recording request count and latency per
// route pattern. The pattern is only known once routing has run, so it is
// read after next returns.
func (m *serverMetrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, ok := w.(*responseWriter)
		if !ok {
			rw = &responseWriter{ResponseWriter: w, status: http.StatusOK}
		}

		start := time.Now()
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		route := unmatchedRoute
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
	})
}
