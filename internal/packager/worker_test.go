package packager

import (
	"context"
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/workspace"
)

// fakeCloner materializes files (relative path -> content) into the clone directory.
type fakeCloner struct {
	files map[string]string
	err   error
	urls  []string
}

func (f *fakeCloner) Clone(_ context.Context, url, dir string) (string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return "", f.err
	}
	for rel, content := range f.files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return "", err
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			return "", err
		}
	}
	return "deadbeef", nil
}

type fakeBuilder struct {
	calls       []string
	artifact    string // written into the build root on success
	buildErr    error
	teardownErr error
	onBuild     func()
}

func (f *fakeBuilder) Build(_ context.Context, root string) error {
	f.calls = append(f.calls, "build:"+root)
	if f.onBuild != nil {
		f.onBuild()
	}
	if f.buildErr != nil {
		return f.buildErr
	}
	if f.artifact != "" {
		return os.WriteFile(filepath.Join(root, f.artifact), []byte("spk"), 0o600)
	}
	return nil
}

func (f *fakeBuilder) Teardown(ctx context.Context, root string) error {
	f.calls = append(f.calls, "teardown:"+root)
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.teardownErr
}

type recordCall struct {
	key       string
	succeeded bool
}

type fakeLedger struct {
	records []recordCall
	err     error
}

func (f *fakeLedger) Record(ctx context.Context, c candidate.Candidate, succeeded bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.records = append(f.records, recordCall{key: c.Key(), succeeded: succeeded})
	return f.err
}

type fakeExporter struct {
	exported map[string]string
	err      error
}

func (f *fakeExporter) Export(ctx context.Context, key, artifact string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	f.exported[key] = artifact
	return "/export/" + key + filepath.Ext(artifact), nil
}

type fixture struct {
	cloner   *fakeCloner
	builder  *fakeBuilder
	ledger   *fakeLedger
	exporter *fakeExporter
	wsRoot   string
	cfg      Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cloner:   &fakeCloner{files: map[string]string{"app/.meteor/release": "METEOR@1.2\n", "README.md": "hi"}},
		builder:  &fakeBuilder{artifact: "sandstorm-package.spk"},
		ledger:   &fakeLedger{},
		exporter: &fakeExporter{exported: map[string]string{}},
		wsRoot:   t.TempDir(),
	}
	f.cfg = Config{
		Workspace: workspace.NewManager(f.wsRoot, "meteorspk", false),
		Cloner:    f.cloner,
		Builder:   f.builder,
		Ledger:    f.ledger,
		Exporter:  f.exporter,
		Marker:    ".meteor",
	}
	return f
}

func (f *fixture) worker(t *testing.T) *Worker {
	t.Helper()
	w, err := NewWorker(f.cfg)
	require.NoError(t, err)
	return w
}

func testCandidate(t *testing.T) candidate.Candidate {
	t.Helper()
	c, err := candidate.FromURL("https://github.com/alice/todo")
	require.NoError(t, err)
	return c
}

func requireWorkspaceEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries, "working copy should have been removed")
}

func TestProcess_Success(t *testing.T) {
	f := newFixture(t)
	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.NoError(t, err)

	require.True(t, res.Succeeded)
	require.True(t, res.Recorded)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: true}}, f.ledger.records)
	require.Equal(t, []string{"https://github.com/alice/todo.git"}, f.cloner.urls)
	require.Equal(t, filepath.Join(res.Workdir, "app"), res.BuildRoot)
	require.Equal(t, []string{"build:" + res.BuildRoot, "teardown:" + res.BuildRoot}, f.builder.calls)
	require.Equal(t, filepath.Join(res.BuildRoot, "sandstorm-package.spk"), f.exporter.exported["alice.todo"])
	require.Equal(t, "/export/alice.todo.spk", res.Artifact)
	requireWorkspaceEmpty(t, f.wsRoot)
}

func TestProcess_CancelDuringBuildCompletesAttempt(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	f.builder.onBuild = cancel

	res, err := f.worker(t).Process(ctx, testCandidate(t))
	require.NoError(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	require.True(t, res.Succeeded)
	require.True(t, res.Recorded)
	require.Equal(t, []string{"build:" + res.BuildRoot, "teardown:" + res.BuildRoot}, f.builder.calls)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: true}}, f.ledger.records)
	require.Equal(t, "/export/alice.todo.spk", res.Artifact)
	requireWorkspaceEmpty(t, f.wsRoot)
}

func TestProcess_CloneFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.cloner.err = stdErrors.New("repository not found")

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.ErrorIs(t, err, ErrCloneFailed)
	require.True(t, errors.HasCategory(err, errors.CategoryPackaging))
	require.False(t, res.Succeeded)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: false}}, f.ledger.records)
	require.Empty(t, f.builder.calls)
	requireWorkspaceEmpty(t, f.wsRoot)
}

func TestProcess_NoBuildMarker(t *testing.T) {
	f := newFixture(t)
	f.cloner.files = map[string]string{"README.md": "not a meteor app"}

	_, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.ErrorIs(t, err, ErrNoBuildEntryFound)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: false}}, f.ledger.records)
	require.Empty(t, f.builder.calls)
}

func TestProcess_BuildFailureStillTearsDown(t *testing.T) {
	f := newFixture(t)
	f.builder.buildErr = stdErrors.New("exit status 1")

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.ErrorIs(t, err, ErrPackagingToolFailed)
	require.Len(t, f.builder.calls, 2)
	require.Equal(t, "teardown:"+res.BuildRoot, f.builder.calls[1])
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: false}}, f.ledger.records)
	require.Empty(t, f.exporter.exported)
}

func TestProcess_TeardownFailureDoesNotSkipRecording(t *testing.T) {
	f := newFixture(t)
	f.builder.buildErr = stdErrors.New("exit status 1")
	f.builder.teardownErr = stdErrors.New("vm busy")

	_, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.ErrorIs(t, err, ErrPackagingToolFailed)
	require.ErrorIs(t, err, ErrTeardownFailed)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: false}}, f.ledger.records)
}

func TestProcess_TeardownFailureAfterSuccessfulBuild(t *testing.T) {
	f := newFixture(t)
	f.builder.teardownErr = stdErrors.New("vm busy")

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.ErrorIs(t, err, ErrTeardownFailed)
	require.NotErrorIs(t, err, ErrPackagingToolFailed)
	require.True(t, res.Succeeded)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: true}}, f.ledger.records)
	require.Contains(t, f.exporter.exported, "alice.todo")
}

func TestProcess_LedgerFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.ledger.err = errors.LedgerError("push rejected").Build()

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryLedger))
	require.False(t, res.Recorded)
	require.Len(t, f.ledger.records, 1)
}

func TestProcess_DryRun(t *testing.T) {
	f := newFixture(t)
	f.cfg.Builder = nil
	f.cfg.DryRun = true
	f.cfg.DryRunOutcome = true

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: true}}, f.ledger.records)
	require.Empty(t, f.builder.calls)
	require.Empty(t, f.exporter.exported)
	require.Empty(t, res.Artifact)
}

func TestProcess_DryRunRecordsConfiguredFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.DryRun = true
	f.cfg.DryRunOutcome = false

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: false}}, f.ledger.records)
	require.Empty(t, f.builder.calls)
}

func TestProcess_ArtifactMissingAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.builder.artifact = ""

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.ErrorIs(t, err, ErrArtifactMissing)
	require.True(t, res.Succeeded)
	require.Equal(t, []recordCall{{key: "alice.todo", succeeded: true}}, f.ledger.records)
}

func TestProcess_ExportFailure(t *testing.T) {
	f := newFixture(t)
	f.exporter.err = errors.ExportError("mirror down").WithCause(ErrExportFailed).Build()

	_, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.ErrorIs(t, err, ErrExportFailed)
	require.Len(t, f.ledger.records, 1)
}

func TestProcess_RetainsWorkingCopy(t *testing.T) {
	f := newFixture(t)
	f.cfg.Workspace = workspace.NewManager(f.wsRoot, "meteorspk", true)

	res, err := f.worker(t).Process(t.Context(), testCandidate(t))
	require.NoError(t, err)
	require.DirExists(t, res.Workdir)
	require.FileExists(t, filepath.Join(res.Workdir, "app", ".meteor", "release"))
}

func TestNewWorker_RequiresCollaborators(t *testing.T) {
	_, err := NewWorker(Config{})
	require.Error(t, err)

	f := newFixture(t)
	f.cfg.Builder = nil
	_, err = NewWorker(f.cfg)
	require.Error(t, err, "builder is required outside dry-run")
}
