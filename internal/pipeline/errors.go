package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned when the query is blank after trimming. It is
// rejected before any work is queued and is never retried.
var ErrEmptyQuery = errors.New("query cannot be empty")

// ErrNoPassages is returned when retrieval succeeds but yields nothing.
var ErrNoPassages = errors.New("no relevant paragraphs found")

// ErrNoVerifiedQuotes is returned when no model candidate survives
// verification against the retrieved passages.
var ErrNoVerifiedQuotes = errors.New("no verified quotes found")

// GenerationParseError reports model output that could not be decoded as a
// list of quote candidates after every generation attempt.
type GenerationParseError struct {
	// Attempts is the number of generation calls made.
	Attempts int
	// Err is the decode error from the final attempt.
	Err error
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("model returned malformed JSON (failed after %d attempts): %v", e.Attempts, e.Err)
}

func (e *GenerationParseError) Unwrap() error { return e.Err }

// UpstreamError reports a failure of an external service.
type UpstreamError struct {
	// Service names the failing dependency: "retrieval" or "generation".
	Service string
	// Err is the underlying failure.
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// retryable reports whether the top-level loop should run another attempt
// after err.
func retryable(err error) bool {
	return !errors.Is(err, ErrEmptyQuery)
}
