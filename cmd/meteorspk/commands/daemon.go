package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/daemon"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Schedule string `help:"Interval (6h) or cron expression between runs (overrides run.schedule)"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if d.Schedule != "" {
		cfg.Run.Schedule = d.Schedule
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.CheckTooling(); err != nil {
		return err
	}
	watchPath := root.Config
	if _, err := os.Stat(watchPath); err != nil {
		watchPath = ""
	}
	return RunDaemon(cfg, watchPath)
}

// RunDaemon runs the pipeline on cfg's schedule until SIGINT or SIGTERM.
func RunDaemon(cfg *config.Config, configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt := newServices(cfg.Metrics.Addr)
	defer rt.Close()

	d, err := daemon.New(cfg, configPath, func(ctx context.Context, c *config.Config) error {
		report, err := runPipeline(ctx, c, rt, nil)
		if err == nil {
			slog.Info("Scheduled run complete", logfields.RunID(report.RunID), slog.Int("attempted", report.Attempted))
		}
		return err
	})
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Start(ctx)
	}()
	slog.Info("Daemon started, waiting for shutdown signal...")

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("daemon error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	slog.Info("Daemon stopped successfully")
	return nil
}
