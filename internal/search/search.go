// Package search is the entry point used by the HTTP API and the CLI. It
// answers repeated questions from the cache and turns everything else into
// an asynchronous job, or runs the pipeline inline for one-shot callers.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/pipeline"
	"github.com/54b3r/quoteseek/internal/rag"
	"github.com/54b3r/quoteseek/internal/verify"
)

// MaxTopK caps the passage count a caller may request.
const MaxTopK = 100

// Cache is the query result cache consulted before any work is queued.
type Cache interface {
	Get(query string, count int) ([]verify.Quote, bool)
	Put(query string, count int, quotes []verify.Quote)
}

// Result is the immediate outcome of a submission.
type Result struct {
	// Status is complete for cache hits and pending for queued jobs.
	Status jobs.Status
	// Cached reports whether Quotes came from the cache.
	Cached bool
	// JobID identifies the queued job when Status is pending.
	JobID string
	// Quotes holds the cached result when Status is complete.
	Quotes []verify.Quote
}

// Service coordinates the cache, the job queue and the pipeline.
type Service struct {
	// cache holds verified results.
	cache Cache
	// queue accepts asynchronous jobs; may be nil for inline-only use.
	queue *jobs.Queue
	// processor runs the pipeline for Search; may be nil for queue-only use.
	processor jobs.Processor
	// defaultTopK is applied when the caller passes <= 0.
	defaultTopK int
}

// Config wires a Service.
type Config struct {
	// Cache is required.
	Cache Cache
	// Queue enables Submit and Poll.
	Queue *jobs.Queue
	// Processor enables Search.
	Processor jobs.Processor
	// DefaultTopK is the passage count used when none is requested.
	DefaultTopK int
}

// New returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("search: cache must not be nil")
	}
	if cfg.Queue == nil && cfg.Processor == nil {
		return nil, fmt.Errorf("search: queue or processor is required")
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = rag.DefaultTopK
	}
	return &Service{
		cache:       cfg.Cache,
		queue:       cfg.Queue,
		processor:   cfg.Processor,
		defaultTopK: cfg.DefaultTopK,
	}, nil
}

// normalize trims the query and resolves topK so that the cache key and the
// job use the same values.
func (s *Service) normalize(query string, topK int) (string, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", 0, pipeline.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	return query, min(topK, MaxTopK), nil
}

// Submit answers from the cache or enqueues a job. It never waits for the
// pipeline. Errors are pipeline.ErrEmptyQuery, jobs.ErrQueueFull and
// jobs.ErrClosed.
func (s *Service) Submit(query string, topK int) (Result, error) {
	if s.queue == nil {
		return Result{}, fmt.Errorf("search: no job queue configured")
	}
	query, topK, err := s.normalize(query, topK)
	if err != nil {
		return Result{}, err
	}

	if quotes, ok := s.cache.Get(query, topK); ok {
		return Result{Status: jobs.StatusComplete, Cached: true, Quotes: quotes}, nil
	}

	id, err := s.queue.Submit(query, topK)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: jobs.StatusPending, JobID: id}, nil
}

// Poll returns a job's state. Terminal results are consumed by the read
// unless the store retains them.
func (s *Service) Poll(id string) (jobs.Job, bool) {
	if s.queue == nil {
		return jobs.Job{}, false
	}
	return s.queue.Store().Poll(id)
}

// Search runs the pipeline inline, using and populating the cache.
func (s *Service) Search(ctx context.Context, query string, topK int) (Result, error) {
	if s.processor == nil {
		return Result{}, fmt.Errorf("search: no processor configured")
	}
	query, topK, err := s.normalize(query, topK)
	if err != nil {
		return Result{}, err
	}

	if quotes, ok := s.cache.Get(query, topK); ok {
		return Result{Status: jobs.StatusComplete, Cached: true, Quotes: quotes}, nil
	}

	quotes, err := s.processor.Process(ctx, query, topK)
	if err != nil {
		return Result{}, err
	}
	s.cache.Put(query, topK, quotes)
	return Result{Status: jobs.StatusComplete, Quotes: quotes}, nil
}
