// Package journal keeps a local SQLite history of attempts and runs. The git
// ledger remains the source of truth for idempotency; the journal adds timing,
// error detail and run summaries for the status command.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/paulproteus/for-each-meteor-app/internal/events"
)

// Store implements events.Sink using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the journal at dbPath. Use ":memory:" for an in-memory journal.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		key TEXT NOT NULL,
		url TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		recorded INTEGER NOT NULL,
		error TEXT,
		category TEXT,
		artifact TEXT,
		duration_ms INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_key ON attempts(key);
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seen INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		attempted INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AttemptFinished appends an attempt row.
func (s *Store) AttemptFinished(ctx context.Context, e events.AttemptFinished) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, key, url, succeeded, recorded, error, category, artifact, duration_ms, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Key, e.URL, e.Succeeded, e.Recorded, nullable(e.Error), nullable(e.Category),
		nullable(e.Artifact), e.DurationMS, timestamp(e.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// RunFinished stores (or replaces) a run summary.
func (s *Store) RunFinished(ctx context.Context, e events.RunFinished) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, seen, skipped, attempted, succeeded, failed, error, duration_ms, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Seen, e.Skipped, e.Attempted, e.Succeeded, e.Failed, nullable(e.Error),
		e.DurationMS, timestamp(e.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const attemptColumns = "run_id, key, url, succeeded, recorded, error, category, artifact, duration_ms, finished_at"

// AttemptsByRun returns the attempts of one run in dispatch order.
func (s *Store) AttemptsByRun(ctx context.Context, runID string) ([]events.AttemptFinished, error) {
	return s.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM attempts WHERE run_id = ? ORDER BY id", runID)
}

// AttemptsByKey returns every attempt journaled for a candidate key, oldest first.
func (s *Store) AttemptsByKey(ctx context.Context, key string) ([]events.AttemptFinished, error) {
	return s.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM attempts WHERE key = ? ORDER BY id", key)
}

// RecentAttempts returns the newest attempts, newest first.
func (s *Store) RecentAttempts(ctx context.Context, limit int) ([]events.AttemptFinished, error) {
	return s.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM attempts ORDER BY id DESC LIMIT ?", limit)
}

// RecentRuns returns the newest run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]events.RunFinished, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seen, skipped, attempted, succeeded, failed, error, duration_ms, finished_at
		 FROM runs ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []events.RunFinished
	for rows.Next() {
		var r events.RunFinished
		var errText sql.NullString
		var finished int64
		if err := rows.Scan(&r.RunID, &r.Seen, &r.Skipped, &r.Attempted, &r.Succeeded, &r.Failed, &errText, &r.DurationMS, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Error = errText.String
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]events.AttemptFinished, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []events.AttemptFinished
	for rows.Next() {
		var a events.AttemptFinished
		var errText, category, artifact sql.NullString
		var finished int64
		if err := rows.Scan(&a.RunID, &a.Key, &a.URL, &a.Succeeded, &a.Recorded, &errText, &category, &artifact, &a.DurationMS, &finished); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Error, a.Category, a.Artifact = errText.String, category.String, artifact.String
		a.FinishedAt = time.UnixMilli(finished)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timestamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}

var _ events.Sink = (*Store)(nil)
