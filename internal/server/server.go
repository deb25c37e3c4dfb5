// Package server implements the HTTP API of the quote search service:
// question submission, job polling, health and readiness probes, and the
// Prometheus scrape endpoint. It is started by the `quoteseek serve` command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/logging"
	"github.com/54b3r/quoteseek/internal/pipeline"
)

// maxBodyBytes bounds the POST /api/query request body.
const maxBodyBytes = 64 << 10

// emptyQuestionMessage is the client-facing message for a blank question.
const emptyQuestionMessage = "Question cannot be empty"

// New constructs a Server around the given search service.
func New(svc searcher, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: search service must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		search:  svc,
		cfg:     cfg,
		log:     log,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stop := newRateLimiter(queryRoute, cfg.RateLimit, cfg.RateBurst,
		s.metrics.rateLimitedTotal.WithLabelValues(queryRoute), log)
	s.stopRL = stop

	if cfg.APIKey == "" {
		log.Warn("server: QUOTESEEK_API_KEY is not set; /api/query and /api/jobs are unauthenticated")
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return requestLogger(log, next) })
	r.Use(s.metrics.instrument)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return authMiddleware(cfg.APIKey, next) })
		r.With(rl.middleware).Post(queryRoute, s.handleQuery)
		r.Get("/api/jobs/{id}", s.handleJob)
	})

	s.handler = r
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the server's root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.log.Info("server: stopped")
		return nil
	}
}

// handleQuery handles POST /api/query. A cached answer is returned at once
// with 200; anything else is queued and acknowledged with 202 and a job ID.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	// An empty body is treated as an empty question.
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		s.metrics.queryRequestsTotal.WithLabelValues("invalid").Inc()
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TopK < 0 {
		s.metrics.queryRequestsTotal.WithLabelValues("invalid").Inc()
		writeJSONError(w, "top_k must not be negative", http.StatusBadRequest)
		return
	}

	res, err := s.search.Submit(req.Question, req.TopK)
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		s.metrics.queryRequestsTotal.WithLabelValues("invalid").Inc()
		writeJSONError(w, emptyQuestionMessage, http.StatusBadRequest)
		return
	case errors.Is(err, jobs.ErrQueueFull):
		s.metrics.queryRequestsTotal.WithLabelValues("rejected").Inc()
		log.Warn("server: job queue full, rejecting query")
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, "queue full", http.StatusServiceUnavailable)
		return
	case errors.Is(err, jobs.ErrClosed):
		s.metrics.queryRequestsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, "server shutting down", http.StatusServiceUnavailable)
		return
	case err != nil:
		s.metrics.queryRequestsTotal.WithLabelValues("error").Inc()
		log.Error("server: submit failed", slog.Any("error", err))
		writeJSONError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if res.Cached {
		s.metrics.queryRequestsTotal.WithLabelValues("cached").Inc()
		writeJSON(w, http.StatusOK, queryResponse{Status: res.Status, Cached: true, Quotes: res.Quotes})
		return
	}

	s.metrics.queryRequestsTotal.WithLabelValues("queued").Inc()
	log.Info("server: query queued", slog.String("job_id", res.JobID))
	writeJSON(w, http.StatusAccepted, queryResponse{Status: res.Status, JobID: res.JobID})
}

// handleJob handles GET /api/jobs/{id}. Terminal results are delivered once;
// a second poll for the same job returns 404.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, ok := s.search.Poll(id)
	if !ok {
		s.metrics.jobPollsTotal.WithLabelValues("not_found").Inc()
		writeJSONError(w, "job not found", http.StatusNotFound)
		return
	}
	s.metrics.jobPollsTotal.WithLabelValues(string(job.Status)).Inc()

	resp := queryResponse{Status: job.Status}
	switch job.Status {
	case jobs.StatusPending:
		resp.JobID = job.ID
	case jobs.StatusComplete:
		resp.Quotes = job.Quotes
	case jobs.StatusError:
		resp.Error = job.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON-formatted error response with the given status code.
func writeJSONError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, errorResponse{Error: msg})
}
