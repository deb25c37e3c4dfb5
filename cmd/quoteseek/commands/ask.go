package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/54b3r/quoteseek/internal/cache"
	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/logging"
	"github.com/54b3r/quoteseek/internal/pipeline"
	"github.com/54b3r/quoteseek/internal/search"
	"github.com/54b3r/quoteseek/internal/tracing"
	"github.com/54b3r/quoteseek/internal/verify"
)

// askOutput is the JSON printed by `quoteseek ask`.
type askOutput struct {
	ResponseText []verify.Quote `json:"response_text"`
}

// NewAskCmd constructs the `quoteseek ask` command, which runs one question
// through the pipeline in the foreground and prints the verified quotes.
func NewAskCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Find verified quotes that answer a question",
		Long: `Run one question through retrieval, generation and verification and print
the verified quotes as JSON. No server or job queue is involved.

Examples:
  quoteseek ask "what does it mean to have faith?"
  quoteseek ask --top-k 30 "how can I find peace in hard times?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()
			ctx = logging.WithLogger(ctx, log)

			flush, _ := tracing.Enable()
			defer flush()

			b, err := buildBackend(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer b.close()

			svc, err := search.New(search.Config{
				Cache:     cache.New(cache.DefaultTTL, nil),
				Processor: b.pipeline,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			started := time.Now()
			res, err := svc.Search(ctx, args[0], topK)
			if errors.Is(err, pipeline.ErrEmptyQuery) {
				return fmt.Errorf("ask: question cannot be empty")
			}

			if history := openHistory(log); history != nil {
				defer func() { _ = history.Close() }()
				entry := askJob(args[0], topK, started, res.Quotes, err)
				if recErr := history.Record(ctx, entry); recErr != nil {
					log.Warn("history: failed to record query", slog.Any("error", recErr))
				}
			}

			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(askOutput{ResponseText: res.Quotes})
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of passages to retrieve (default: SEARCH_TOP_K or 15)")

	return cmd
}

// askJob builds the history record for a foreground query.
func askJob(query string, topK int, started time.Time, quotes []verify.Quote, err error) jobs.Job {
	job := jobs.Job{
		ID:         uuid.NewString(),
		Query:      query,
		TopK:       topK,
		Status:     jobs.StatusComplete,
		Quotes:     quotes,
		CreatedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		job.Status = jobs.StatusError
		job.Error = err.Error()
		job.Quotes = nil
	}
	return job
}
