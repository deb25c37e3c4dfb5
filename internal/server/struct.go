package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/search"
	"github.com/54b3r/quoteseek/internal/verify"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on
	// POST /api/query (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the /api/query and /api/jobs
	// routes. If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives the server's metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// searcher is the interface the query handlers call.
// *search.Service satisfies it; tests inject a fake.
type searcher interface {
	// Submit answers from the cache or enqueues a job.
	Submit(query string, topK int) (search.Result, error)
	// Poll returns a job's state, consuming terminal results.
	Poll(id string) (jobs.Job, bool)
}

// Server is the HTTP front end of the quote search service.
type Server struct {
	// search handles submissions and polls.
	search searcher
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// handler is the fully wrapped chi router.
	handler http.Handler
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by the server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the natural language query.
	Question string `json:"question"`
	// TopK optionally overrides the number of passages retrieved.
	TopK int `json:"top_k,omitempty"`
}

// queryResponse is the JSON body returned by POST /api/query and
// GET /api/jobs/{id}.
type queryResponse struct {
	// Status is pending, complete or error.
	Status jobs.Status `json:"status"`
	// Cached is true when the result was served from the query cache.
	Cached bool `json:"cached,omitempty"`
	// JobID identifies a pending job to poll.
	JobID string `json:"job_id,omitempty"`
	// Quotes holds the verified quotes of a complete result.
	Quotes []verify.Quote `json:"response_text,omitempty"`
	// Error is the failure message of an errored job.
	Error string `json:"error,omitempty"`
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	// Error is the human-readable failure message.
	Error string `json:"error"`
}
