package pipeline

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
	"github.com/paulproteus/for-each-meteor-app/internal/discovery"
	"github.com/paulproteus/for-each-meteor-app/internal/events"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/ledger"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
	"github.com/paulproteus/for-each-meteor-app/internal/packager"
)

// Ledger is the subset of the state ledger the orchestrator needs.
type Ledger interface {
	Ensure(ctx context.Context) error
	Exists(c candidate.Candidate) bool
	Record(ctx context.Context, c candidate.Candidate, succeeded bool) error
}

// Summarizer is implemented by ledgers that keep a human-readable summary.
type Summarizer interface {
	WriteSummary(ctx context.Context) error
}

// Worker packages one candidate.
type Worker interface {
	Process(ctx context.Context, c candidate.Candidate) (packager.Result, error)
}

// StopReason explains why a run ended.
type StopReason string

const (
	StopExhausted StopReason = "exhausted"
	StopCap       StopReason = "cap"
	StopCanceled  StopReason = "canceled"
	StopFailed    StopReason = "failed"
)

// Report summarizes a run.
type Report struct {
	RunID     string
	Seen      int
	Skipped   int
	Attempted int
	Succeeded int
	Failed    int
	Stopped   StopReason
	Duration  time.Duration
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Source discovery.Source
	Ledger Ledger
	Worker Worker
	// Claimer is optional; nil grants every claim.
	Claimer  ledger.Claimer
	Sink     events.Sink
	Recorder metrics.Recorder
	// MaxAttempts caps dispatched candidates; zero means unlimited.
	MaxAttempts int

	// Now and NewRunID allow tests to inject deterministic values.
	Now      func() time.Time
	NewRunID func() string
}

// Orchestrator runs the discover-skip-process loop.
type Orchestrator struct {
	cfg Config
}

// New validates cfg and returns an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Source == nil || cfg.Ledger == nil || cfg.Worker == nil {
		return nil, errors.InternalError("pipeline requires source, ledger and worker").Build()
	}
	if cfg.MaxAttempts < 0 {
		return nil, errors.ValidationError("max attempts cannot be negative").
			WithContext("max_attempts", cfg.MaxAttempts).Build()
	}
	if cfg.Claimer == nil {
		cfg.Claimer = ledger.NoopClaimer{}
	}
	if cfg.Sink == nil {
		cfg.Sink = events.Fanout{}
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = uuid.NewString
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Run executes one run. The returned error is non-nil only for fatal-to-run
// conditions: ledger setup and discovery failures. Cancellation between candidates
// ends the run cleanly with StopCanceled.
func (o *Orchestrator) Run(ctx context.Context) (report Report, err error) {
	start := o.cfg.Now()
	report.RunID = o.cfg.NewRunID()
	log := slog.With(logfields.RunID(report.RunID))
	log.Info("Run started", slog.Int("max_attempts", o.cfg.MaxAttempts))

	defer func() {
		report.Duration = o.cfg.Now().Sub(start)
		if err != nil {
			report.Stopped = StopFailed
		}
		o.cfg.Recorder.ObserveRunDuration(report.Duration)
		o.finish(context.WithoutCancel(ctx), log, report, err)
	}()

	if err := o.cfg.Ledger.Ensure(ctx); err != nil {
		return report, err
	}

	report.Stopped = StopExhausted
	for c, derr := range o.cfg.Source.Candidates(ctx) {
		if derr != nil {
			if stdErrors.Is(derr, context.Canceled) {
				report.Stopped = StopCanceled
				return report, nil
			}
			return report, derr
		}
		if ctx.Err() != nil {
			report.Stopped = StopCanceled
			return report, nil
		}
		report.Seen++

		if o.skip(ctx, log, c, &report) {
			continue
		}

		report.Attempted++
		o.dispatch(ctx, log, report.RunID, c, &report)

		if o.cfg.MaxAttempts > 0 && report.Attempted >= o.cfg.MaxAttempts {
			log.Info("Attempt cap reached", slog.Int("max_attempts", o.cfg.MaxAttempts))
			report.Stopped = StopCap
			break
		}
	}
	return report, nil
}

// skip reports whether c must not be dispatched, counting and logging the reason.
func (o *Orchestrator) skip(ctx context.Context, log *slog.Logger, c candidate.Candidate, report *Report) bool {
	key := c.Key()
	if o.cfg.Ledger.Exists(c) {
		log.Info("Skipping already attempted candidate", logfields.Candidate(key))
		report.Skipped++
		o.cfg.Recorder.IncSkipped(metrics.SkipLedger)
		return true
	}
	claimed, err := o.cfg.Claimer.Claim(ctx, key)
	if err != nil {
		log.Warn("Claim failed; skipping candidate", logfields.Candidate(key), logfields.Error(err))
	}
	if err != nil || !claimed {
		if err == nil {
			log.Info("Candidate claimed by another worker", logfields.Candidate(key))
		}
		report.Skipped++
		o.cfg.Recorder.IncSkipped(metrics.SkipClaimed)
		return true
	}
	return false
}

func (o *Orchestrator) dispatch(ctx context.Context, log *slog.Logger, runID string, c candidate.Candidate, report *Report) {
	key := c.Key()
	log.Info("Processing candidate", logfields.Candidate(key), logfields.URL(c.URL()))
	started := o.cfg.Now()
	res, err := o.process(ctx, c)
	if res.Duration == 0 {
		res.Duration = o.cfg.Now().Sub(started)
	}

	if res.Succeeded {
		report.Succeeded++
	} else {
		report.Failed++
	}

	result := metrics.ResultFailure
	if res.Succeeded {
		result = metrics.ResultSuccess
	}
	if err != nil {
		result = metrics.ResultError
		attrs := []any{logfields.Candidate(key), logfields.URL(c.URL()), logfields.Error(err),
			logfields.Category(string(errors.GetCategory(err))), logfields.Duration(res.Duration)}
		if ce, ok := errors.AsClassified(err); ok {
			for k, v := range ce.Context() {
				attrs = append(attrs, slog.Any(k, v))
			}
		}
		log.Error("Attempt failed", attrs...)
	} else {
		log.Info("Attempt finished", logfields.Candidate(key), logfields.Outcome(res.Succeeded),
			logfields.Duration(res.Duration))
	}
	o.cfg.Recorder.ObserveAttempt(res.Duration, result)

	ev := events.AttemptFinished{
		RunID:      runID,
		Key:        key,
		URL:        c.URL(),
		Succeeded:  res.Succeeded,
		Recorded:   res.Recorded,
		Artifact:   res.Artifact,
		DurationMS: res.Duration.Milliseconds(),
		FinishedAt: o.cfg.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
		ev.Category = string(errors.GetCategory(err))
	}
	_ = o.cfg.Sink.AttemptFinished(context.WithoutCancel(ctx), ev)
}

// process runs the worker, converting a panic into an error. If the worker panicked
// before recording, a failure entry is recorded here so the attempt still counts.
func (o *Orchestrator) process(ctx context.Context, c candidate.Candidate) (res packager.Result, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = errors.NewError(errors.CategoryRuntime, "packaging attempt panicked").
			WithContext("panic", fmt.Sprint(r)).
			WithContext("stack", string(debug.Stack())).Build()
		res = packager.Result{Candidate: c, Recorded: o.cfg.Ledger.Exists(c)}
		if !res.Recorded {
			if rerr := o.cfg.Ledger.Record(ctx, c, false); rerr != nil {
				err = stdErrors.Join(err, rerr)
			} else {
				res.Recorded = true
			}
		}
	}()
	return o.cfg.Worker.Process(ctx, c)
}

func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, report Report, runErr error) {
	if s, ok := o.cfg.Ledger.(Summarizer); ok && report.Attempted > 0 {
		if err := s.WriteSummary(ctx); err != nil {
			log.Warn("Failed to update ledger summary", logfields.Error(err))
		}
	}
	ev := events.RunFinished{
		RunID:      report.RunID,
		Seen:       report.Seen,
		Skipped:    report.Skipped,
		Attempted:  report.Attempted,
		Succeeded:  report.Succeeded,
		Failed:     report.Failed,
		DurationMS: report.Duration.Milliseconds(),
		FinishedAt: o.cfg.Now(),
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	_ = o.cfg.Sink.RunFinished(ctx, ev)
	log.Info("Run finished",
		slog.String("stopped", string(report.Stopped)),
		slog.Int("seen", report.Seen),
		slog.Int("skipped", report.Skipped),
		slog.Int("attempted", report.Attempted),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		logfields.Duration(report.Duration))
}
