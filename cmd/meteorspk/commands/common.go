package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
)

// Global carries process-wide state into subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (optional; the environment alone is enough)" default:"meteorspk.yaml" env:"METEORSPK_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" default:"withargs" help:"Discover candidates and package the ones not yet in the ledger"`
	Discover DiscoverCmd `cmd:"" help:"List candidates from the search endpoint without packaging"`
	Status   StatusCmd   `cmd:"" help:"Summarize the ledger and recent runs"`
	Daemon   DaemonCmd   `cmd:"" help:"Run the pipeline on a schedule, reloading config on change"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Info     VersionCmd  `cmd:"" name:"version" help:"Print version and build information"`
}

// AfterApply runs after flag parsing; set up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads configuration and wraps failures as config errors.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to load configuration").
			WithContext("path", path).Build()
	}
	return cfg, nil
}
