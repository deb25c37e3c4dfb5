package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/quoteseek/internal/verify"
)

// DefaultResultTTL is how long a terminal result that nobody polls is kept.
const DefaultResultTTL = time.Hour

// StoreConfig controls result retention.
type StoreConfig struct {
	// ResultTTL is how long a terminal result is retained after it finishes.
	// Values <= 0 select DefaultResultTTL.
	ResultTTL time.Duration

	// KeepAfterRead disables delete-on-read; results then live for ResultTTL.
	KeepAfterRead bool
}

// Store holds job state keyed by ID. All methods are safe for concurrent use.
type Store struct {
	// mu protects jobs.
	mu sync.Mutex
	// jobs maps job ID to its current state.
	jobs map[string]*Job
	// cfg holds retention settings.
	cfg StoreConfig
	// now is the clock; replaced in tests.
	now func() time.Time
}

// NewStore returns an empty Store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = DefaultResultTTL
	}
	return &Store{
		jobs: make(map[string]*Job),
		cfg:  cfg,
		now:  time.Now,
	}
}

// Create registers a new pending job and returns a snapshot of it.
func (s *Store) Create(query string, topK int) Job {
	job := &Job{
		ID:        uuid.NewString(),
		Query:     query,
		TopK:      topK,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return *job
}

// Complete marks a pending job as complete with quotes. It returns the
// terminal snapshot, or false if the job is unknown or already terminal.
func (s *Store) Complete(id string, quotes []verify.Quote) (Job, bool) {
	return s.finish(id, func(j *Job) {
		j.Status = StatusComplete
		j.Quotes = quotes
	})
}

// Fail marks a pending job as failed with msg. It returns the terminal
// snapshot, or false if the job is unknown or already terminal.
func (s *Store) Fail(id, msg string) (Job, bool) {
	return s.finish(id, func(j *Job) {
		j.Status = StatusError
		j.Error = msg
	})
}

func (s *Store) finish(id string, apply func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok || j.Status.Terminal() {
		return Job{}, false
	}
	apply(j)
	j.FinishedAt = s.now()
	return *j, true
}

// Poll returns the job's current state. Reading a terminal result removes it
// unless KeepAfterRead is set, so a second poll reports not found. The read
// and the removal happen under one lock.
func (s *Store) Poll(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	if j.Status.Terminal() && !s.cfg.KeepAfterRead {
		delete(s.jobs, id)
	}
	return *j, true
}

// Peek returns the job's current state without consuming a terminal result.
func (s *Store) Peek(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Remove deletes a job regardless of state.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Len returns the number of jobs held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Sweep removes terminal results that finished more than ResultTTL ago and
// returns how many were removed. Pending jobs are never swept.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.ResultTTL)
	removed := 0
	for id, j := range s.jobs {
		if j.Status.Terminal() && j.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Sweep periodically in a background goroutine. The
// goroutine exits when the returned stop function is called.
func (s *Store) StartJanitor(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = min(time.Minute, s.cfg.ResultTTL)
	}

	stopCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stopCh) }) }
}
