package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/provider"
)

// LLMPinger probes the generation backend with its zero-cost model listing
// endpoint. It satisfies the Pinger interface and is used by GET /api/ready.
type LLMPinger struct {
	// probe is the request that proves the backend is reachable.
	probe provider.HealthProbe
	// name identifies the backend in readiness responses (e.g. "openai").
	name string
	// client performs the probe; the per-probe context bounds it.
	client *http.Client
}

// NewLLMPinger constructs an LLMPinger for the given probe and backend name.
func NewLLMPinger(probe provider.HealthProbe, name string) *LLMPinger {
	return &LLMPinger{probe: probe, name: name, client: &http.Client{}}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping issues the probe request and accepts any 2xx response.
func (p *LLMPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.probe.URL, nil)
	if err != nil {
		return fmt.Errorf("%s health check: %w", p.name, err)
	}
	for k, vs := range p.probe.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s health check failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s health check failed: HTTP %d", p.name, resp.StatusCode)
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// QueuePinger reports the job queue as unready when Submit would refuse a
// question: after the worker has shut down, or while every slot is taken.
type QueuePinger struct {
	queue *jobs.Queue
}

// NewQueuePinger constructs a QueuePinger for q.
func NewQueuePinger(q *jobs.Queue) *QueuePinger {
	return &QueuePinger{queue: q}
}

// Name returns the dependency label used in readiness responses.
func (p *QueuePinger) Name() string { return "job_queue" }

// Ping fails with jobs.ErrClosed or jobs.ErrQueueFull, matching what a
// submission would get right now.
func (p *QueuePinger) Ping(_ context.Context) error {
	if p.queue.Closed() {
		return jobs.ErrClosed
	}
	if n, c := p.queue.Len(), p.queue.Cap(); n >= c {
		return fmt.Errorf("%w (%d/%d waiting)", jobs.ErrQueueFull, n, c)
	}
	return nil
}
