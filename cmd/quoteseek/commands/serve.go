package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/54b3r/quoteseek/internal/cache"
	"github.com/54b3r/quoteseek/internal/config"
	"github.com/54b3r/quoteseek/internal/jobs"
	"github.com/54b3r/quoteseek/internal/logging"
	"github.com/54b3r/quoteseek/internal/search"
	"github.com/54b3r/quoteseek/internal/server"
	"github.com/54b3r/quoteseek/internal/tracing"
	"github.com/54b3r/quoteseek/internal/version"
)

// janitorInterval is how often expired job results are swept.
const janitorInterval = time.Minute

// NewServeCmd constructs the `quoteseek serve` command, which starts the
// HTTP API and the background job worker.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quoteseek HTTP API and job worker",
		Long: `Start the quoteseek HTTP API and its single background worker.

POST /api/query answers from the cache or queues a job and returns its ID;
GET /api/jobs/{id} returns the job's status, and its result exactly once.
GET /api/health, GET /api/ready and GET /metrics serve operators.

Examples:
  quoteseek serve
  quoteseek serve --port 9090
  MODEL_PROVIDER=ollama quoteseek serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.FromContext(ctx)
			build := version.Get()
			log.Info("quoteseek starting",
				slog.String("version", build.Version),
				slog.String("commit", build.Commit),
			)
			if !cmd.Flags().Changed("host") {
				host = config.String("SERVER_HOST", "127.0.0.1")
			}
			if !cmd.Flags().Changed("port") {
				port = config.Int("SERVER_PORT", 8080)
			}

			// Langfuse tracing is opt-in and a no-op when keys are absent.
			flush, ok := tracing.Enable()
			defer flush()
			log.Info("langfuse tracing", slog.Bool("enabled", ok))

			reg := prometheus.DefaultRegisterer
			b, err := buildBackend(ctx, log, reg)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer b.close()

			queryCache := cache.New(config.Duration("CACHE_TTL", cache.DefaultTTL), reg)
			jobStore := jobs.NewStore(jobs.StoreConfig{
				ResultTTL:     config.Duration("JOB_RESULT_TTL", jobs.DefaultResultTTL),
				KeepAfterRead: config.Bool("JOB_KEEP_AFTER_READ", false),
			})
			queue := jobs.NewQueue(config.Int("JOB_QUEUE_SIZE", jobs.DefaultQueueSize), jobStore, jobs.NewMetrics(reg))

			workerOpts := []jobs.WorkerOption{jobs.WithCache(queryCache), jobs.WithLogger(log)}
			if history := openHistory(log); history != nil {
				defer func() { _ = history.Close() }()
				workerOpts = append(workerOpts, jobs.WithRecorder(history))
			}
			worker, err := jobs.NewWorker(queue, b.pipeline, workerOpts...)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			svc, err := search.New(search.Config{
				Cache:       queryCache,
				Queue:       queue,
				Processor:   b.pipeline,
				DefaultTopK: config.Int("SEARCH_TOP_K", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(svc, &server.Config{
				Host:            host,
				Port:            port,
				Logger:          log,
				Pingers:         buildPingers(b, queue, log),
				APIKey:          config.String("QUOTESEEK_API_KEY", ""),
				MetricsRegistry: reg,
				MetricsGatherer: prometheus.DefaultGatherer,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			stopJanitor := jobStore.StartJanitor(janitorInterval)
			defer stopJanitor()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return worker.Run(gctx) })
			g.Go(func() error { return srv.Start(gctx) })
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to (env: SERVER_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on (env: SERVER_PORT)")

	return cmd
}
