package jobs

import (
	"sync"
)

// DefaultQueueSize is the queue capacity when none is configured.
const DefaultQueueSize = 100

// Queue is a bounded FIFO of job IDs feeding the worker. Submission never
// blocks: when the buffer is full the job is rejected.
type Queue struct {
	// mu serializes Submit against close so nothing is enqueued after drain.
	mu sync.RWMutex
	// closed is set once the worker stops accepting work.
	closed bool
	// ch carries job IDs to the worker.
	ch chan string
	// store holds the state of every submitted job.
	store *Store
	// metrics records submissions and depth.
	metrics *Metrics
}

// NewQueue returns a queue of the given capacity backed by store. A size
// <= 0 selects DefaultQueueSize.
func NewQueue(size int, store *Store, metrics *Metrics) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Queue{
		ch:      make(chan string, size),
		store:   store,
		metrics: metrics,
	}
}

// Store returns the job store behind the queue.
func (q *Queue) Store() *Store { return q.store }

// Submit registers a pending job and enqueues it, returning its ID. The job
// is registered before it is enqueued so a poll can never miss it; if the
// queue is full or closed the registration is rolled back.
func (q *Queue) Submit(query string, topK int) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.metrics.submittedTotal.WithLabelValues("closed").Inc()
		return "", ErrClosed
	}

	job := q.store.Create(query, topK)
	select {
	case q.ch <- job.ID:
		q.metrics.submittedTotal.WithLabelValues("accepted").Inc()
		q.metrics.queueDepth.Set(float64(len(q.ch)))
		return job.ID, nil
	default:
		q.store.Remove(job.ID)
		q.metrics.submittedTotal.WithLabelValues("rejected").Inc()
		return "", ErrQueueFull
	}
}

// Len returns the number of jobs waiting.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Closed reports whether the worker has stopped and Submit now fails with
// ErrClosed.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// close stops accepting submissions and returns the IDs still queued.
func (q *Queue) close() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	var left []string
	for {
		select {
		case id := <-q.ch:
			left = append(left, id)
		default:
			q.metrics.queueDepth.Set(0)
			return left
		}
	}
}
