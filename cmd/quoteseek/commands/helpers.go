package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/quoteseek/internal/config"
	"github.com/54b3r/quoteseek/internal/embedder"
	"github.com/54b3r/quoteseek/internal/generate"
	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/pipeline"
	"github.com/54b3r/quoteseek/internal/provider"
	"github.com/54b3r/quoteseek/internal/rag"
	"github.com/54b3r/quoteseek/internal/server"
	"github.com/54b3r/quoteseek/internal/store"
)

// historyDisabled is the QUOTESEEK_HISTORY_DB value that turns the query log off.
const historyDisabled = "disabled"

// backend bundles the constructed search pipeline with the handles the
// commands need for readiness probes and cleanup.
type backend struct {
	// pipeline runs retrieval, generation and verification.
	pipeline *pipeline.Pipeline
	// qdrant is the vector store; closed by close.
	qdrant *rag.QdrantStore
	// providerCfg is the resolved chat model configuration.
	providerCfg *provider.Config
}

// close releases the vector store connection.
func (b *backend) close() {
	_ = b.qdrant.Close()
}

// buildBackend wires embedder, Qdrant, chat model and pipeline from the
// environment. Metrics are registered against reg.
func buildBackend(ctx context.Context, log *slog.Logger, reg prometheus.Registerer) (*backend, error) {
	embCfg := embedder.ConfigFromEnv()
	emb, err := embedder.New(ctx, embCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	embCfg.WarnMisconfiguration(log)
	log.Info("embedder initialised",
		slog.String("provider", embCfg.Provider),
		slog.String("model", embCfg.Model),
	)

	qcfg := rag.QdrantConfigFromEnv()
	qdrantStore, err := rag.NewQdrantStore(ctx, qcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", qcfg.Host, qcfg.Port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", qcfg.Host),
		slog.Int("port", qcfg.Port),
		slog.String("collection", qcfg.Collection),
	)

	pcfg := pipeline.ConfigFromEnv()
	retriever, err := rag.NewRetriever(emb, qdrantStore, pcfg.TopK)
	if err != nil {
		_ = qdrantStore.Close()
		return nil, err
	}

	providerCfg := provider.ConfigFromEnv()
	chatModel, err := provider.New(ctx, providerCfg)
	if err != nil {
		_ = qdrantStore.Close()
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(providerCfg.Backend)),
		slog.String("model", providerCfg.ModelName()),
	)

	gen, err := generate.NewChatGenerator(chatModel)
	if err != nil {
		_ = qdrantStore.Close()
		return nil, err
	}

	pipe, err := pipeline.New(retriever, gen, pcfg, reg)
	if err != nil {
		_ = qdrantStore.Close()
		return nil, err
	}

	return &backend{pipeline: pipe, qdrant: qdrantStore, providerCfg: providerCfg}, nil
}

// buildPingers returns the readiness probes: the job queue, the vector store
// and, where the backend offers a free endpoint, the chat model.
func buildPingers(b *backend, queue *jobs.Queue, log *slog.Logger) []server.Pinger {
	pingers := []server.Pinger{
		server.NewQueuePinger(queue),
		server.NewQdrantPinger(b.qdrant.Client()),
	}
	if probe, ok := b.providerCfg.HealthProbe(); ok {
		pingers = append(pingers, server.NewLLMPinger(probe, string(b.providerCfg.Backend)))
	} else {
		log.Info("readiness: no health probe for provider, skipping LLM check",
			slog.String("provider", string(b.providerCfg.Backend)),
		)
	}
	return pingers
}

// openHistory opens the query log. QUOTESEEK_HISTORY_DB overrides the
// default path (~/.quoteseek/history.db); "disabled" turns it off. Failures
// are logged and yield a nil log, never an error.
func openHistory(log *slog.Logger) *store.QueryLog {
	dbPath := config.String("QUOTESEEK_HISTORY_DB", "")
	if strings.EqualFold(dbPath, historyDisabled) {
		log.Info("history: disabled via QUOTESEEK_HISTORY_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	ql, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return ql
}
