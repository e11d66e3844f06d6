package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/journal"
	"github.com/paulproteus/for-each-meteor-app/internal/ledger"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
)

// StatusCmd implements the 'status' command. It reads the local ledger checkout
// and never talks to the remote.
type StatusCmd struct {
	Recent int `help:"Number of recent runs to show from the journal" default:"5"`
}

func (s *StatusCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root.Config)
	if err != nil {
		return err
	}
	l := ledger.NewFromConfig(cfg, metrics.NoopRecorder{})
	if _, err := os.Stat(l.Dir()); err != nil {
		return errors.LedgerError("ledger has not been cloned yet; run 'meteorspk run' first").
			UserAction().WithContext("dir", l.Dir()).WithCause(err).Build()
	}
	entries, err := l.Entries()
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(ledger.RenderSummary(entries)); err != nil {
		return err
	}

	if cfg.Journal.Path == "" || s.Recent <= 0 {
		return nil
	}
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to open attempt journal").
			WithContext("path", cfg.Journal.Path).Build()
	}
	defer func() { _ = j.Close() }()
	return printRecentRuns(context.Background(), os.Stdout, j, s.Recent)
}

func printRecentRuns(ctx context.Context, out io.Writer, j *journal.Store, limit int) error {
	runs, err := j.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tFINISHED\tATTEMPTED\tPACKAGED\tFAILED\tSKIPPED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.RunID, r.FinishedAt.Format(time.RFC3339), r.Attempted, r.Succeeded, r.Failed, r.Skipped, r.Error)
	}
	return tw.Flush()
}
