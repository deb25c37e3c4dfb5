// Package jobs runs quote searches asynchronously. A bounded Queue accepts
// submissions without blocking, a single Worker processes them in FIFO
// order, and a Store holds each job's state until its result is read.
package jobs

import (
	"errors"
	"time"

	"github.com/54b3r/quoteseek/internal/verify"
)

// Status is the lifecycle state of a job.
type Status string

const (
	// StatusPending means the job is queued or running.
	StatusPending Status = "pending"
	// StatusComplete means the job finished with verified quotes.
	StatusComplete Status = "complete"
	// StatusError means the job finished with an error message.
	StatusError Status = "error"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

var (
	// ErrQueueFull is returned by Submit when the queue is at capacity.
	ErrQueueFull = errors.New("jobs: queue full")

	// ErrClosed is returned by Submit after the worker has shut down.
	ErrClosed = errors.New("jobs: queue closed")
)

// Job is a snapshot of one query's processing state.
type Job struct {
	// ID is the opaque job identifier returned to the submitter.
	ID string `json:"job_id"`

	// Query is the question text as submitted.
	Query string `json:"query"`

	// TopK is the number of passages requested.
	TopK int `json:"top_k"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Quotes holds the verified result when Status is complete.
	Quotes []verify.Quote `json:"quotes,omitempty"`

	// Error holds the failure message when Status is error.
	Error string `json:"error,omitempty"`

	// CreatedAt is the submission time.
	CreatedAt time.Time `json:"created_at"`

	// FinishedAt is when the job reached a terminal state.
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Duration returns the time from submission to completion, or zero while the
// job is pending.
func (j Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.CreatedAt)
}
