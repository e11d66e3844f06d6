package packager

import (
	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/git"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
	"github.com/paulproteus/for-each-meteor-app/internal/workspace"
)

// NewWorkerFromConfig wires a Worker from configuration: go-git cloning, a
// vagrant-spk builder and a workspace manager honoring the retention flag.
func NewWorkerFromConfig(cfg *config.Config, ledger Ledger, exporter Exporter, rec metrics.Recorder) (*Worker, error) {
	pc := cfg.Packager
	wc := Config{
		Workspace:       workspace.NewManager(pc.WorkRoot, pc.Tag, pc.RetainWorkdirs),
		Cloner:          git.NewClient().WithShallowDepth(pc.ShallowDepth).WithToken(cfg.GitHubToken),
		Ledger:          ledger,
		Recorder:        rec,
		Marker:          pc.Marker,
		ArtifactPattern: pc.ArtifactPath,
		DryRun:          pc.DryRun,
		DryRunOutcome:   pc.DryRunOutcome(),
	}
	if !pc.DryRun {
		wc.Builder = NewVagrantSPK(pc.Tool, pc.ProjectType)
	}
	if exporter != nil {
		wc.Exporter = exporter
	}
	return NewWorker(wc)
}
