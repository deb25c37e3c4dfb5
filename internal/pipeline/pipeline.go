// Package pipeline orchestrates one quote search: retrieve passages, prompt
// the model, decode its candidates, and verify them against the passages.
// Transient failures are retried at two levels: a generation sub-loop for
// malformed model output, and a top-level loop around the whole attempt.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/quoteseek/internal/budget"
	"github.com/54b3r/quoteseek/internal/config"
	"github.com/54b3r/quoteseek/internal/generate"
	"github.com/54b3r/quoteseek/internal/logging"
	"github.com/54b3r/quoteseek/internal/rag"
	"github.com/54b3r/quoteseek/internal/verify"
)

// Config holds the orchestrator's retry and timeout settings.
type Config struct {
	// TopK is the number of passages retrieved when the caller passes <= 0.
	TopK int

	// Attempts bounds the top-level retry loop. Values < 1 mean 1.
	Attempts int

	// RetryDelay is the base backoff of the top-level loop; the wait before
	// attempt n+1 is RetryDelay * n.
	RetryDelay time.Duration

	// GenerationAttempts bounds the generation sub-loop. Values < 1 mean 1.
	GenerationAttempts int

	// GenerationDelay is the fixed wait between generation attempts.
	GenerationDelay time.Duration

	// CallTimeout bounds each retrieval and generation call. Zero disables it.
	CallTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TopK:               rag.DefaultTopK,
		Attempts:           3,
		RetryDelay:         time.Second,
		GenerationAttempts: 3,
		GenerationDelay:    time.Second,
		CallTimeout:        60 * time.Second,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by SEARCH_TOP_K,
// SEARCH_ATTEMPTS, SEARCH_RETRY_DELAY, GENERATION_ATTEMPTS,
// GENERATION_RETRY_DELAY and UPSTREAM_CALL_TIMEOUT.
func ConfigFromEnv() Config {
	d := DefaultConfig()
	return Config{
		TopK:               config.Int("SEARCH_TOP_K", d.TopK),
		Attempts:           config.Int("SEARCH_ATTEMPTS", d.Attempts),
		RetryDelay:         config.Duration("SEARCH_RETRY_DELAY", d.RetryDelay),
		GenerationAttempts: config.Int("GENERATION_ATTEMPTS", d.GenerationAttempts),
		GenerationDelay:    config.Duration("GENERATION_RETRY_DELAY", d.GenerationDelay),
		CallTimeout:        config.Duration("UPSTREAM_CALL_TIMEOUT", d.CallTimeout),
	}
}

// Pipeline runs quote searches. It is safe for concurrent use.
type Pipeline struct {
	// retriever fetches candidate passages for a query.
	retriever rag.Retriever
	// generator is the language model client.
	generator generate.Generator
	// cfg holds retry and timeout settings.
	cfg Config
	// metrics records attempt outcomes and prompt sizes.
	metrics *pipelineMetrics
	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Pipeline. Metrics are registered against reg; a nil reg
// uses a private registry.
func New(retriever rag.Retriever, generator generate.Generator, cfg Config, reg prometheus.Registerer) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("pipeline: retriever must not be nil")
	}
	if generator == nil {
		return nil, fmt.Errorf("pipeline: generator must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = rag.DefaultTopK
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.GenerationAttempts < 1 {
		cfg.GenerationAttempts = 1
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Pipeline{
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
		metrics:   newPipelineMetrics(reg),
		sleep:     sleepContext,
	}, nil
}

// Process returns the verified quotes for query. topK <= 0 selects the
// configured default. Every error except ErrEmptyQuery and context
// cancellation is retried by the top-level loop; once attempts are exhausted
// the last error is returned wrapped with the attempt count.
func (p *Pipeline) Process(ctx context.Context, query string, topK int) ([]verify.Quote, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	log := logging.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			p.metrics.runsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("pipeline: %w", err)
		}

		quotes, err := p.attempt(ctx, log, query, topK)
		p.metrics.attemptsTotal.WithLabelValues(attemptResult(err)).Inc()
		if err == nil {
			if attempt > 1 {
				log.Info("pipeline: succeeded after retry", slog.Int("attempt", attempt))
			}
			p.metrics.runsTotal.WithLabelValues("ok").Inc()
			p.metrics.quotesVerified.Observe(float64(len(quotes)))
			return quotes, nil
		}
		if !retryable(err) {
			p.metrics.runsTotal.WithLabelValues("error").Inc()
			return nil, err
		}

		lastErr = err
		log.Warn("pipeline: attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.cfg.Attempts),
			slog.String("error", err.Error()),
		)

		if attempt == p.cfg.Attempts {
			break
		}
		if err := p.sleep(ctx, p.cfg.RetryDelay*time.Duration(attempt)); err != nil {
			p.metrics.runsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	p.metrics.runsTotal.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("pipeline: failed after %d attempts: %w", p.cfg.Attempts, lastErr)
}

// attempt runs retrieval, generation and verification once.
func (p *Pipeline) attempt(ctx context.Context, log *slog.Logger, query string, topK int) ([]verify.Quote, error) {
	passages, err := p.retrieve(ctx, query, topK)
	if err != nil {
		log.Error("pipeline: upstream failure", slog.String("service", "retrieval"), slog.String("error", err.Error()))
		return nil, &UpstreamError{Service: "retrieval", Err: err}
	}
	if len(passages) == 0 {
		return nil, ErrNoPassages
	}
	log.Debug("pipeline: passages retrieved", slog.Int("count", len(passages)))

	prompt := BuildPrompt(query, passages)
	tokens := budget.EstimatePrompt(SystemPrompt, prompt)
	p.metrics.promptTokens.Observe(float64(tokens))
	log.Debug("pipeline: prompt built", slog.Int("estimated_tokens", tokens))

	candidates, err := p.generate(ctx, log, prompt)
	if err != nil {
		return nil, err
	}

	quotes := verify.Verify(log, passages, candidates)
	log.Info("pipeline: verification complete",
		slog.Int("candidates", len(candidates)),
		slog.Int("verified", len(quotes)),
	)
	if len(quotes) == 0 {
		return nil, ErrNoVerifiedQuotes
	}
	return quotes, nil
}

// retrieve calls the retriever under the per-call timeout.
func (p *Pipeline) retrieve(ctx context.Context, query string, topK int) ([]rag.Passage, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	return p.retriever.Retrieve(callCtx, query, topK)
}

// generate calls the model and decodes its output, retrying malformed output
// up to GenerationAttempts times with a fixed delay. A failed model call is
// not retried here; it surfaces as an UpstreamError to the top-level loop.
func (p *Pipeline) generate(ctx context.Context, log *slog.Logger, prompt string) ([]verify.Candidate, error) {
	var parseErr error
	for attempt := 1; attempt <= p.cfg.GenerationAttempts; attempt++ {
		raw, err := p.callGenerator(ctx, prompt)
		if err != nil {
			log.Error("pipeline: upstream failure", slog.String("service", "generation"), slog.String("error", err.Error()))
			return nil, &UpstreamError{Service: "generation", Err: err}
		}

		candidates, err := generate.DecodeCandidates(raw)
		if err == nil {
			return candidates, nil
		}

		parseErr = err
		log.Warn("pipeline: malformed model output",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.cfg.GenerationAttempts),
			slog.String("error", err.Error()),
		)

		if attempt == p.cfg.GenerationAttempts {
			break
		}
		if err := p.sleep(ctx, p.cfg.GenerationDelay); err != nil {
			return nil, err
		}
	}
	return nil, &GenerationParseError{Attempts: p.cfg.GenerationAttempts, Err: parseErr}
}

// callGenerator invokes the model once under the per-call timeout.
func (p *Pipeline) callGenerator(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	p.metrics.generationCallsTotal.Inc()
	return p.generator.Generate(callCtx, SystemPrompt, prompt)
}

// callContext derives the context for one upstream call.
func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.CallTimeout)
}

// attemptResult maps an attempt error to its metric label.
func attemptResult(err error) string {
	var parseErr *GenerationParseError
	var upstreamErr *UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoPassages):
		return "no_passages"
	case errors.Is(err, ErrNoVerifiedQuotes):
		return "no_verified"
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &upstreamErr):
		return "upstream_error"
	default:
		return "error"
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
