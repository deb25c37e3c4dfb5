// Package store provides a SQLite-backed query log. Every job that reaches a
// terminal state is appended so operators can review what was asked, how
// long it took and whether verified quotes were found.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/quoteseek/internal/jobs"
)

// Entry is one logged query.
type Entry struct {
	// JobID is the job identifier.
	JobID string
	// Query is the question text.
	Query string
	// TopK is the number of passages requested.
	TopK int
	// Status is the terminal job status.
	Status jobs.Status
	// Quotes is the number of verified quotes returned.
	Quotes int
	// Error is the failure message for errored jobs.
	Error string
	// Duration is the submission-to-completion latency.
	Duration time.Duration
	// CreatedAt is when the job was submitted.
	CreatedAt time.Time
}

// Stats summarizes the log.
type Stats struct {
	// Total is the number of logged queries.
	Total int
	// Complete is the number that returned verified quotes.
	Complete int
	// Failed is the number that ended in error.
	Failed int
}

// QueryLog persists terminal jobs in SQLite. It implements jobs.Recorder and
// is safe for concurrent use.
type QueryLog struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the query log database.
// It resolves to ~/.quoteseek/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".quoteseek")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a QueryLog at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*QueryLog, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	l := &QueryLog{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// migrate creates the schema if it does not already exist.
func (l *QueryLog) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS queries (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id       TEXT    NOT NULL,
    query        TEXT    NOT NULL,
    top_k        INTEGER NOT NULL,
    status       TEXT    NOT NULL CHECK(status IN ('complete','error')),
    quotes       INTEGER NOT NULL,
    error        TEXT    NOT NULL DEFAULT '',
    duration_ms  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (milliseconds)
);
CREATE INDEX IF NOT EXISTS idx_queries_created ON queries (created_at);
`
	if _, err := l.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Record persists a terminal job. Pending jobs are rejected.
func (l *QueryLog) Record(ctx context.Context, job jobs.Job) error {
	if !job.Status.Terminal() {
		return fmt.Errorf("store: record: job %s is not terminal", job.ID)
	}
	const q = `INSERT INTO queries (job_id, query, top_k, status, quotes, error, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := l.db.ExecContext(ctx, q,
		job.ID, job.Query, job.TopK, string(job.Status), len(job.Quotes), job.Error,
		job.Duration().Milliseconds(), job.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store: record: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, newest first.
func (l *QueryLog) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT job_id, query, top_k, status, quotes, error, duration_ms, created_at
FROM   queries
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := l.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			status     string
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(&e.JobID, &e.Query, &e.TopK, &status, &e.Quotes, &e.Error, &durationMS, &createdMS); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.Status = jobs.Status(status)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMS)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return entries, nil
}

// Stats returns aggregate counts over the whole log.
func (l *QueryLog) Stats(ctx context.Context) (Stats, error) {
	const q = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN status = 'complete' THEN 1 ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)
FROM   queries`

	var s Stats
	if err := l.db.QueryRowContext(ctx, q).Scan(&s.Total, &s.Complete, &s.Failed); err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	return s, nil
}

// Close releases the database connection pool.
func (l *QueryLog) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
