// Package events defines the records emitted when attempts and runs finish, and
// the Sink interface implemented by the journal and the notifier.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// AttemptFinished is emitted once per dispatched candidate.
type AttemptFinished struct {
	RunID     string `json:"run_id"`
	Key       string `json:"key"`
	URL       string `json:"url"`
	Succeeded bool   `json:"succeeded"`
	// Recorded is false when the ledger write failed.
	Recorded   bool      `json:"recorded"`
	Error      string    `json:"error,omitempty"`
	Category   string    `json:"category,omitempty"`
	Artifact   string    `json:"artifact,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunFinished summarizes a pipeline run.
type RunFinished struct {
	RunID      string    `json:"run_id"`
	Seen       int       `json:"seen"`
	Skipped    int       `json:"skipped"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

// Sink receives pipeline events.
type Sink interface {
	AttemptFinished(ctx context.Context, e AttemptFinished) error
	RunFinished(ctx context.Context, e RunFinished) error
}

// Fanout delivers every event to each sink. Sink failures are logged, never returned:
// observers must not affect the run.
type Fanout []Sink

func (f Fanout) AttemptFinished(ctx context.Context, e AttemptFinished) error {
	for _, s := range f {
		if err := s.AttemptFinished(ctx, e); err != nil {
			slog.Warn("Event sink failed", logfields.Candidate(e.Key), logfields.Error(err))
		}
	}
	return nil
}

func (f Fanout) RunFinished(ctx context.Context, e RunFinished) error {
	for _, s := range f {
		if err := s.RunFinished(ctx, e); err != nil {
			slog.Warn("Event sink failed", logfields.RunID(e.RunID), logfields.Error(err))
		}
	}
	return nil
}
