package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/discovery"
	"github.com/paulproteus/for-each-meteor-app/internal/pipeline"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	MaxAttempts int      `help:"Stop after this many packaging attempts; 0 is unlimited, negative keeps MAX_ATTEMPTS" default:"-1"`
	DryRun      bool     `help:"Skip vagrant-spk and record the dry-run outcome"`
	Candidate   []string `help:"Package these GitHub project URLs instead of crawling search results" placeholder:"URL"`
	MetricsAddr string   `help:"Serve Prometheus metrics on this address while running (overrides METRICS_ADDR)"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	if r.MaxAttempts >= 0 {
		cfg.Run.MaxAttempts = r.MaxAttempts
	}
	if r.DryRun {
		cfg.Packager.DryRun = true
	}
	if r.MetricsAddr != "" {
		cfg.Metrics.Addr = r.MetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.CheckTooling(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt := newServices(cfg.Metrics.Addr)
	defer rt.Close()

	var source discovery.Source
	if len(r.Candidate) > 0 {
		source = discovery.StaticSource{URLs: r.Candidate}
	}
	report, err := runPipeline(ctx, cfg, rt, source)
	printReport(report)
	return err
}

func printReport(r pipeline.Report) {
	if r.RunID == "" {
		return
	}
	fmt.Printf("Run %s %s after %s: %d seen, %d skipped, %d attempted (%d packaged, %d failed)\n",
		r.RunID, r.Stopped, r.Duration.Round(time.Millisecond), r.Seen, r.Skipped, r.Attempted, r.Succeeded, r.Failed)
}
