package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/quoteseek/internal/logging"
)

// probeTimeout bounds each readiness probe.
const probeTimeout = 5 * time.Second

// Pinger reports whether one thing the query path depends on can serve
// traffic right now: the vector store, the chat model, or the job queue.
// Implementations must be safe to call from multiple goroutines.
type Pinger interface {
	// Ping returns nil when the dependency is usable.
	Ping(ctx context.Context) error
	// Name labels the dependency in readiness responses and metrics.
	Name() string
}

// readyCheck is the result of one probe.
type readyCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// readyResponse is the JSON body returned by GET /api/ready.
type readyResponse struct {
	// Ready is true only when a question submitted now would be accepted and
	// could be answered.
	Ready  bool         `json:"ready"`
	Checks []readyCheck `json:"checks"`
}

// handleHealth handles GET /api/health. It reports liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady handles GET /api/ready. All probes run concurrently, each with
// its own timeout, so one slow dependency cannot hold the others up. The
// response is 503 when any probe fails, including a closed or saturated job
// queue, since POST /api/query would then be refused.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	checks := make([]readyCheck, len(s.pingers))
	var g errgroup.Group
	for i, p := range s.pingers {
		g.Go(func() error {
			checks[i] = s.probe(r.Context(), p)
			return nil
		})
	}
	_ = g.Wait()

	resp := readyResponse{Ready: true, Checks: checks}
	for _, c := range checks {
		if c.OK {
			s.metrics.dependencyUp.WithLabelValues(c.Name).Set(1)
			continue
		}
		resp.Ready = false
		s.metrics.dependencyUp.WithLabelValues(c.Name).Set(0)
		log.Warn("server: not ready",
			slog.String("dependency", c.Name),
			slog.String("error", c.Error),
		)
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// probe runs one Pinger under probeTimeout and times it.
func (s *Server) probe(ctx context.Context, p Pinger) readyCheck {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	check := readyCheck{
		Name:      p.Name(),
		OK:        err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Error = err.Error()
	}
	return check
}
