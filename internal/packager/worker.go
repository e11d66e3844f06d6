package packager

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
)

// Attempt stages, used for logs and stage metrics.
const (
	StageAllocate = "allocate"
	StageClone    = "clone"
	StageMarker   = "marker"
	StageBuild    = "build"
	StageTeardown = "teardown"
	StageRecord   = "record"
	StageExport   = "export"
)

// Cloner fetches a project into an empty directory.
type Cloner interface {
	Clone(ctx context.Context, url, dir string) (string, error)
}

// Ledger persists attempt outcomes.
type Ledger interface {
	Record(ctx context.Context, c candidate.Candidate, succeeded bool) error
}

// Exporter publishes a built artifact under the candidate key.
type Exporter interface {
	Export(ctx context.Context, key, artifact string) (string, error)
}

// Workspace allocates and releases working copies.
type Workspace interface {
	Create(key string) (string, error)
	Cleanup(dir string) error
}

// Config holds the Worker's collaborators and policy.
type Config struct {
	Workspace Workspace
	Cloner    Cloner
	Builder   Builder
	Ledger    Ledger
	// Exporter may be nil, leaving artifacts in the working copy.
	Exporter Exporter
	Recorder metrics.Recorder

	Marker string
	// ArtifactPattern locates the artifact relative to the build root; globs allowed.
	ArtifactPattern string
	DryRun          bool
	// DryRunOutcome is recorded for dry-run attempts.
	DryRunOutcome bool
}

// Result describes one finished attempt.
type Result struct {
	Candidate candidate.Candidate
	Succeeded bool
	// Recorded is true once the ledger accepted the outcome.
	Recorded  bool
	BuildRoot string
	Artifact  string
	Workdir   string
	Duration  time.Duration
}

// Worker packages one candidate at a time.
type Worker struct {
	cfg Config
}

// NewWorker validates cfg and returns a Worker.
func NewWorker(cfg Config) (*Worker, error) {
	if cfg.Workspace == nil || cfg.Cloner == nil || cfg.Ledger == nil {
		return nil, errors.InternalError("packager requires workspace, cloner and ledger").Build()
	}
	if cfg.Builder == nil && !cfg.DryRun {
		return nil, errors.InternalError("packager requires a builder unless in dry-run mode").Build()
	}
	if cfg.Marker == "" {
		cfg.Marker = ".meteor"
	}
	if cfg.ArtifactPattern == "" {
		cfg.ArtifactPattern = "*.spk"
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	return &Worker{cfg: cfg}, nil
}

// Process runs one attempt for c. The outcome is recorded in the ledger exactly
// once whatever step fails; the returned error joins every failure of the attempt.
// Cancelling ctx does not interrupt an attempt: the sandbox is always torn down and
// the outcome recorded. Callers stop between candidates.
func (w *Worker) Process(ctx context.Context, c candidate.Candidate) (res Result, err error) {
	ctx = context.WithoutCancel(ctx)
	key := c.Key()
	log := slog.With(logfields.Candidate(key))
	start := time.Now()
	res.Candidate = c
	defer func() { res.Duration = time.Since(start) }()

	stop := w.stage(StageAllocate)
	dir, allocErr := w.cfg.Workspace.Create(key)
	stop()
	if allocErr != nil {
		res.Recorded, err = w.record(ctx, c, false)
		return res, stdErrors.Join(allocErr, err)
	}
	res.Workdir = dir
	defer func() {
		if cerr := w.cfg.Workspace.Cleanup(dir); cerr != nil {
			log.Warn("Failed to remove working copy", logfields.Path(dir), logfields.Error(cerr))
		}
	}()

	root, succeeded, attemptErr := w.attempt(ctx, log, c, dir)
	res.BuildRoot = root
	res.Succeeded = succeeded

	var recordErr error
	res.Recorded, recordErr = w.record(ctx, c, succeeded)

	var exportErr error
	if succeeded && !w.cfg.DryRun {
		res.Artifact, exportErr = w.export(ctx, log, c, root)
	}
	return res, stdErrors.Join(attemptErr, recordErr, exportErr)
}

// attempt performs clone, marker search, build and teardown. succeeded reflects the
// build (or the dry-run outcome); err may be non-nil with succeeded true when only
// the teardown failed.
func (w *Worker) attempt(ctx context.Context, log *slog.Logger, c candidate.Candidate, dir string) (root string, succeeded bool, err error) {
	stop := w.stage(StageClone)
	_, cloneErr := w.cfg.Cloner.Clone(ctx, c.CloneURL(), dir)
	stop()
	if cloneErr != nil {
		return "", false, errors.PackagingError("failed to clone candidate").
			WithCause(fmt.Errorf("%w: %w", ErrCloneFailed, cloneErr)).
			WithContext("url", c.URL()).Build()
	}

	stop = w.stage(StageMarker)
	root, err = FindBuildRoot(dir, w.cfg.Marker)
	stop()
	if err != nil {
		return "", false, err
	}
	log.Info("Found build root", logfields.Path(root))

	if w.cfg.DryRun {
		log.Info("Dry run: skipping packaging tool", logfields.Outcome(w.cfg.DryRunOutcome))
		return root, w.cfg.DryRunOutcome, nil
	}

	stop = w.stage(StageBuild)
	buildErr := w.cfg.Builder.Build(ctx, root)
	stop()
	stop = w.stage(StageTeardown)
	teardownErr := w.cfg.Builder.Teardown(ctx, root)
	stop()

	if buildErr != nil {
		err = errors.PackagingError("packaging tool failed").
			WithCause(fmt.Errorf("%w: %w", ErrPackagingToolFailed, buildErr)).
			WithContext("path", root).Build()
	}
	if teardownErr != nil {
		err = stdErrors.Join(err, errors.PackagingError("sandbox teardown failed").Warning().
			WithCause(fmt.Errorf("%w: %w", ErrTeardownFailed, teardownErr)).
			WithContext("path", root).Build())
	}
	return root, buildErr == nil, err
}

func (w *Worker) record(ctx context.Context, c candidate.Candidate, succeeded bool) (bool, error) {
	stop := w.stage(StageRecord)
	defer stop()
	if err := w.cfg.Ledger.Record(ctx, c, succeeded); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Worker) export(ctx context.Context, log *slog.Logger, c candidate.Candidate, root string) (string, error) {
	artifact, ok := findArtifact(root, w.cfg.ArtifactPattern)
	if !ok {
		err := errors.PackagingError("packaging tool reported success but produced no artifact").
			WithCause(ErrArtifactMissing).
			WithContext("path", root).WithContext("pattern", w.cfg.ArtifactPattern).Build()
		log.Error("Artifact missing after successful build", logfields.Path(root),
			slog.String("pattern", w.cfg.ArtifactPattern), logfields.Error(err))
		return "", err
	}
	if w.cfg.Exporter == nil {
		return artifact, nil
	}
	stop := w.stage(StageExport)
	defer stop()
	return w.cfg.Exporter.Export(ctx, c.Key(), artifact)
}

func (w *Worker) stage(name string) func() {
	start := time.Now()
	return func() { w.cfg.Recorder.ObserveStageDuration(name, time.Since(start)) }
}
