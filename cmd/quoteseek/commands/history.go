package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/quoteseek/internal/config"
	"github.com/54b3r/quoteseek/internal/store"
)

// queryPreviewLen truncates questions in the history table.
const queryPreviewLen = 60

// NewHistoryCmd constructs the `quoteseek history` command, which prints the
// most recent logged queries and aggregate counts.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered questions",
		Long: `Print the most recent queries recorded in the query log, newest first,
followed by totals.

The log lives at ~/.quoteseek/history.db unless QUOTESEEK_HISTORY_DB
points elsewhere.

Examples:
  quoteseek history
  quoteseek history -n 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("history: -n must be positive")
			}
			path := config.String("QUOTESEEK_HISTORY_DB", "")
			if path == historyDisabled {
				return fmt.Errorf("history: query log is disabled (QUOTESEEK_HISTORY_DB=disabled)")
			}
			if path == "" {
				var err error
				if path, err = store.DefaultDBPath(); err != nil {
					return fmt.Errorf("history: %w", err)
				}
			}

			ql, err := store.Open(path)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			defer func() { _ = ql.Close() }()

			ctx := cmd.Context()
			entries, err := ql.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			stats, err := ql.Stats(ctx)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			return printHistory(cmd, entries, stats)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")

	return cmd
}

// printHistory renders entries as an aligned table.
func printHistory(cmd *cobra.Command, entries []store.Entry, stats store.Stats) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tQUOTES\tTOP_K\tDURATION\tQUESTION")
	for _, e := range entries {
		question := e.Query
		if r := []rune(question); len(r) > queryPreviewLen {
			question = string(r[:queryPreviewLen]) + "..."
		}
		if e.Error != "" {
			question += "  (" + e.Error + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			e.Status, e.Quotes, e.TopK,
			e.Duration.Round(time.Millisecond), question,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%d queries: %d complete, %d failed\n",
		stats.Total, stats.Complete, stats.Failed)
	return err
}
