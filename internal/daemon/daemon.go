package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

const runJobName = "pipeline-run"

// RunFunc performs one pipeline run with the given configuration.
type RunFunc func(ctx context.Context, cfg *config.Config) error

// Daemon schedules RunFunc and applies configuration reloads between runs.
type Daemon struct {
	configPath string
	run        RunFunc

	mu    sync.RWMutex
	cfg   *config.Config
	jobID uuid.UUID
	ctx   context.Context

	// running serializes runs across ticks and manual triggers.
	running   sync.Mutex
	scheduler *Scheduler
	watcher   *ConfigWatcher
}

// New creates a daemon. configPath may be empty, in which case no reloads happen.
func New(cfg *config.Config, configPath string, run RunFunc) (*Daemon, error) {
	if cfg == nil || run == nil {
		return nil, errors.InternalError("daemon requires a config and a run function").Build()
	}
	if cfg.Run.Schedule == "" {
		return nil, errors.ConfigError("daemon mode needs run.schedule").Build()
	}
	s, err := NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "create scheduler").Build()
	}
	return &Daemon{configPath: configPath, run: run, cfg: cfg, scheduler: s}, nil
}

// Start schedules the first run immediately and then on cfg.Run.Schedule. It
// blocks until ctx is done.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	id, err := d.scheduler.Schedule(runJobName, d.cfg.Run.Schedule, d.tick,
		gocron.WithStartAt(gocron.WithStartImmediately()))
	if err != nil {
		d.mu.Unlock()
		return errors.WrapError(err, errors.CategoryConfig, "invalid run schedule").
			WithContext("schedule", d.cfg.Run.Schedule).Build()
	}
	d.jobID = id
	d.mu.Unlock()

	if d.configPath != "" {
		w, err := NewConfigWatcher(d.configPath, d, config.Load)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		d.watcher = w
	}

	d.scheduler.Start()
	slog.Info("Daemon started", slog.String("schedule", d.cfg.Run.Schedule))
	<-ctx.Done()
	return nil
}

// Stop shuts down the watcher and scheduler, waiting for an in-flight run.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.watcher != nil {
		_ = d.watcher.Stop(ctx)
	}
	return d.scheduler.Stop()
}

// Config returns the configuration the next run will use.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// ReloadConfig validates newCfg and swaps it in. A changed schedule replaces the
// scheduled job; a run already in progress keeps the configuration it started with.
func (d *Daemon) ReloadConfig(_ context.Context, newCfg *config.Config) error {
	if err := newCfg.Validate(); err != nil {
		return err
	}
	if newCfg.Run.Schedule == "" {
		return errors.ConfigError("daemon mode needs run.schedule").Build()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if newCfg.Run.Schedule != d.cfg.Run.Schedule && d.jobID != uuid.Nil {
		id, err := d.scheduler.Schedule(runJobName, newCfg.Run.Schedule, d.tick)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid run schedule").
				WithContext("schedule", newCfg.Run.Schedule).Build()
		}
		if err := d.scheduler.Remove(d.jobID); err != nil {
			slog.Warn("Failed to remove previous schedule", logfields.Error(err))
		}
		d.jobID = id
		slog.Info("Run schedule changed", slog.String("schedule", newCfg.Run.Schedule))
	}
	d.cfg = newCfg
	return nil
}

// TriggerNow runs the pipeline synchronously unless a run is already in progress.
// It reports whether a run happened.
func (d *Daemon) TriggerNow(ctx context.Context) bool {
	if !d.running.TryLock() {
		slog.Info("Run already in progress; skipping trigger")
		return false
	}
	defer d.running.Unlock()

	cfg := d.Config()
	if err := d.run(ctx, cfg); err != nil {
		slog.Error("Scheduled run failed",
			logfields.Error(err),
			logfields.Category(string(errors.GetCategory(err))))
	}
	return true
}

func (d *Daemon) tick() {
	d.mu.RLock()
	ctx := d.ctx
	d.mu.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	d.TriggerNow(ctx)
}
