package commands

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/discovery"
	"github.com/paulproteus/for-each-meteor-app/internal/events"
	"github.com/paulproteus/for-each-meteor-app/internal/journal"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("meteorspk"), kong.Vars{"version": "test"}, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, ctx
}

func TestCLI_RunFlags(t *testing.T) {
	cli, ctx := parse(t, "run", "--dry-run", "--max-attempts", "2",
		"--candidate", "https://github.com/a/a", "--candidate", "https://github.com/b/b")
	require.Equal(t, "run", ctx.Command())
	require.True(t, cli.Run.DryRun)
	require.Equal(t, 2, cli.Run.MaxAttempts)
	require.Equal(t, []string{"https://github.com/a/a", "https://github.com/b/b"}, cli.Run.Candidate)
}

func TestCLI_RunIsDefault(t *testing.T) {
	cli, ctx := parse(t)
	require.Equal(t, "run", ctx.Command())
	require.Equal(t, -1, cli.Run.MaxAttempts, "unset flag keeps the configured cap")
}

func TestCLI_Subcommands(t *testing.T) {
	for _, cmd := range []string{"discover", "status", "daemon", "init", "version"} {
		_, ctx := parse(t, cmd)
		require.Equal(t, cmd, ctx.Command())
	}
}

func TestRunDiscover_PrintsKeysAndStopsAtLimit(t *testing.T) {
	src := discovery.StaticSource{URLs: []string{
		"https://github.com/alice/todo",
		"https://github.com/bob/chat",
		"https://github.com/carol/blog",
	}}
	var out bytes.Buffer
	require.NoError(t, RunDiscover(t.Context(), &out, src, 2))
	require.Equal(t, "alice.todo\thttps://github.com/alice/todo\nbob.chat\thttps://github.com/bob/chat\n", out.String())
}

func TestRunDiscover_PropagatesErrors(t *testing.T) {
	src := discovery.StaticSource{URLs: []string{"https://github.com/not-a-project"}}
	require.Error(t, RunDiscover(t.Context(), &bytes.Buffer{}, src, 0))
}

func TestOpenSinks_JournalReceivesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	cfg := &config.Config{Journal: config.JournalConfig{Path: path}}

	sink, closeSinks, err := openSinks(cfg)
	require.NoError(t, err)
	require.NoError(t, sink.RunFinished(t.Context(), events.RunFinished{RunID: "r1", Attempted: 2, Succeeded: 1, Failed: 1, FinishedAt: time.Unix(1_700_000_000, 0)}))
	closeSinks()

	j, err := journal.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	var out bytes.Buffer
	require.NoError(t, printRecentRuns(t.Context(), &out, j, 5))
	require.Contains(t, out.String(), "RUN")
	require.Contains(t, out.String(), "r1")
}

func TestOpenSinks_NothingConfigured(t *testing.T) {
	sink, closeSinks, err := openSinks(&config.Config{})
	require.NoError(t, err)
	require.NoError(t, sink.AttemptFinished(t.Context(), events.AttemptFinished{Key: "a.a"}))
	closeSinks()
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meteorspk.yaml")
	require.NoError(t, RunInit(path, false))
	require.Error(t, RunInit(path, false))
	require.NoError(t, RunInit(path, true))

	t.Setenv(config.EnvGitRepoURL, "https://example.com/state.git")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/state.git", cfg.Ledger.RepoURL)
}
