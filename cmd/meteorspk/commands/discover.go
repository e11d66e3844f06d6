package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/paulproteus/for-each-meteor-app/internal/discovery"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	Limit int `short:"n" help:"Stop after this many candidates (0 = all pages)" default:"20"`
}

func (d *DiscoverCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	searcher, err := discovery.NewFromConfig(cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	return RunDiscover(ctx, os.Stdout, searcher, d.Limit)
}

// RunDiscover prints key and URL for each candidate the source yields.
func RunDiscover(ctx context.Context, out io.Writer, source discovery.Source, limit int) error {
	n := 0
	for c, err := range source.Candidates(ctx) {
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", c.Key(), c.URL())
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return nil
}
