// Package journal provides a SQLite-backed, append-only record of pipeline
// runs. Each delivered event and each one-shot CLI run leaves exactly one
// row describing its terminal outcome. The journal is observability only:
// the pipeline never reads it and no processing decision depends on it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry is one pipeline run outcome.
type Entry struct {
	// Subject is the raw event subject, or empty for URL-driven runs.
	Subject string
	// URL is the resolved blob URL, or empty when parsing failed.
	URL string
	// Outcome is the terminal outcome label (see internal/pipeline).
	Outcome string
	// Detail carries the error text for failure outcomes, empty otherwise.
	Detail string
	// Duration is the wall-clock duration of the run.
	Duration time.Duration
	// CreatedAt is when the entry was persisted.
	CreatedAt time.Time
}

// Journal records pipeline run outcomes. Implementations must be safe for
// concurrent use.
type Journal interface {
	// Record persists one run outcome.
	Record(ctx context.Context, e Entry) error
	// Recent returns the most recent n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)
	// Close releases any resources held by the journal.
	Close() error
}

// SQLiteJournal is a Journal backed by a local SQLite database.
type SQLiteJournal struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the processing journal.
// It resolves to ~/.imgsearch/journal.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("journal: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".imgsearch")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("journal: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "journal.db"), nil
}

// Open opens (or creates) a SQLiteJournal at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteJournal, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// migrate creates the schema if it does not already exist.
func (j *SQLiteJournal) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    subject      TEXT    NOT NULL,
    url          TEXT    NOT NULL,
    outcome      TEXT    NOT NULL,
    detail       TEXT    NOT NULL,
    duration_ms  INTEGER NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs (created_at);
CREATE INDEX IF NOT EXISTS idx_runs_outcome ON runs (outcome);
`
	if _, err := j.db.Exec(ddl); err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

// Record persists one run outcome.
func (j *SQLiteJournal) Record(ctx context.Context, e Entry) error {
	const q = `INSERT INTO runs (subject, url, outcome, detail, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, q,
		e.Subject, e.URL, e.Outcome, e.Detail, e.Duration.Milliseconds(), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Recent returns the most recent n entries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `SELECT subject, url, outcome, detail, duration_ms, created_at
FROM runs ORDER BY id DESC LIMIT ?`

	rows, err := j.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMS int64
		var createdAt int64
		if err := rows.Scan(&e.Subject, &e.URL, &e.Outcome, &e.Detail, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate: %w", err)
	}

	return entries, nil
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
