package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/54b3r/quoteseek/internal/logging"
	"github.com/54b3r/quoteseek/internal/verify"
)

// shutdownMessage is the error recorded for jobs still queued at shutdown.
const shutdownMessage = "server shutting down, please retry"

// Processor runs the quote search for one job.
type Processor interface {
	Process(ctx context.Context, query string, topK int) ([]verify.Quote, error)
}

// ResultCache receives every successful result.
type ResultCache interface {
	Put(query string, count int, quotes []verify.Quote)
}

// Recorder persists terminal jobs, e.g. to the query history log.
type Recorder interface {
	Record(ctx context.Context, job Job) error
}

// Worker processes queued jobs one at a time. A failing or panicking job is
// recorded as an error and the worker moves on to the next one.
type Worker struct {
	// queue supplies job IDs.
	queue *Queue
	// processor runs the search.
	processor Processor
	// cache receives successful results; may be nil.
	cache ResultCache
	// recorder persists terminal jobs; may be nil.
	recorder Recorder
	// log is the base logger; each job adds its job_id.
	log *slog.Logger
}

// WorkerOption configures optional Worker collaborators.
type WorkerOption func(*Worker)

// WithCache populates c with every successful result.
func WithCache(c ResultCache) WorkerOption {
	return func(w *Worker) { w.cache = c }
}

// WithRecorder persists every terminal job through r.
func WithRecorder(r Recorder) WorkerOption {
	return func(w *Worker) { w.recorder = r }
}

// WithLogger sets the worker's base logger.
func WithLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.log = l }
}

// NewWorker returns a worker draining queue through p.
func NewWorker(queue *Queue, p Processor, opts ...WorkerOption) (*Worker, error) {
	if queue == nil {
		return nil, fmt.Errorf("jobs: queue must not be nil")
	}
	if p == nil {
		return nil, fmt.Errorf("jobs: processor must not be nil")
	}
	w := &Worker{queue: queue, processor: p, log: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes jobs until ctx is cancelled. On return the queue is closed
// and any job still waiting is failed with a shutdown message. Run always
// returns nil; its signature fits errgroup.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("jobs: worker started", slog.Int("queue_capacity", w.queue.Cap()))

	for {
		// Cancellation wins over a ready job.
		if ctx.Err() != nil {
			w.shutdown()
			return nil
		}

		select {
		case <-ctx.Done():
			w.shutdown()
			return nil
		case id := <-w.queue.ch:
			w.queue.metrics.queueDepth.Set(float64(w.queue.Len()))
			w.handle(ctx, id)
		}
	}
}

// shutdown closes the queue and fails everything left in it.
func (w *Worker) shutdown() {
	left := w.queue.close()
	for _, id := range left {
		if job, ok := w.queue.store.Fail(id, shutdownMessage); ok {
			w.finished(context.Background(), job)
		}
	}
	w.log.Info("jobs: worker stopped", slog.Int("abandoned", len(left)))
}

// handle runs one job and records its terminal state.
func (w *Worker) handle(ctx context.Context, id string) {
	job, ok := w.queue.store.Peek(id)
	if !ok {
		return
	}

	log := logging.WithJob(w.log, id)
	ctx = logging.WithLogger(ctx, log)
	log.Info("jobs: processing", slog.String("query", job.Query), slog.Int("top_k", job.TopK))

	quotes, err := w.process(ctx, job)
	if err != nil {
		log.Warn("jobs: failed", slog.String("error", err.Error()))
		if done, ok := w.queue.store.Fail(id, err.Error()); ok {
			w.finished(ctx, done)
		}
		return
	}

	if w.cache != nil {
		w.cache.Put(job.Query, job.TopK, quotes)
	}
	if done, ok := w.queue.store.Complete(id, quotes); ok {
		log.Info("jobs: complete", slog.Int("quotes", len(quotes)))
		w.finished(ctx, done)
	}
}

// process calls the processor, converting a panic into an error.
func (w *Worker) process(ctx context.Context, job Job) (quotes []verify.Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("jobs: processor panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return w.processor.Process(ctx, job.Query, job.TopK)
}

// finished updates metrics and the recorder for a terminal job.
func (w *Worker) finished(ctx context.Context, job Job) {
	status := string(job.Status)
	w.queue.metrics.finishedTotal.WithLabelValues(status).Inc()
	w.queue.metrics.durationSeconds.WithLabelValues(status).Observe(job.Duration().Seconds())

	if w.recorder == nil {
		return
	}
	if err := w.recorder.Record(ctx, job); err != nil {
		logging.FromContext(ctx).Warn("jobs: failed to record job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}
