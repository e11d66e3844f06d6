package ledger

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/git"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
	"github.com/paulproteus/for-each-meteor-app/internal/retry"
)

// ErrBootstrapMissing reports a freshly cloned store without its bootstrap file.
var ErrBootstrapMissing = stdErrors.New("ledger store is missing its bootstrap file")

const (
	valueSuccess = "true\n"
	valueFailure = "false\n"
)

// Options configures a Ledger.
type Options struct {
	// Dir is the local working tree.
	Dir string
	// RepoURL is cloned into Dir when Dir does not exist yet.
	RepoURL string
	Remote  string
	// Branch to rebase onto; empty means the branch checked out in Dir.
	Branch string
	Author git.Author
	// Bootstrap must exist in a freshly cloned store. Empty disables the check.
	Bootstrap string
	Retry     retry.Policy
	Recorder  metrics.Recorder
}

// Ledger is a git-synchronized key-existence store.
type Ledger struct {
	opts Options
	git  *git.Client
}

// New returns a Ledger over an existing working tree without touching the remote.
func New(opts Options, client *git.Client) *Ledger {
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.DefaultPolicy()
	}
	if client == nil {
		client = git.NewClient()
	}
	return &Ledger{opts: opts, git: client}
}

// Open returns a Ledger whose store has been ensured (see Ensure).
func Open(ctx context.Context, opts Options, client *git.Client) (*Ledger, error) {
	l := New(opts, client)
	if err := l.Ensure(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Ensure makes the store exist and be current: it clones RepoURL into Dir when the
// directory is absent (and checks the bootstrap file), otherwise it synchronizes.
func (l *Ledger) Ensure(ctx context.Context) error {
	if git.IsRepository(l.opts.Dir) {
		return l.Sync(ctx)
	}
	return l.clone(ctx)
}

func (l *Ledger) clone(ctx context.Context) error {
	dir := l.opts.Dir
	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		return errors.LedgerError("ledger directory exists but is not a git repository").
			Fatal().WithContext("path", dir).Build()
	}
	if l.opts.RepoURL == "" {
		return errors.ConfigError("ledger repository URL is not configured").
			WithContext("env", "GIT_REPO_URL").Build()
	}
	slog.Info("Cloning ledger store", logfields.URL(l.opts.RepoURL), logfields.Path(dir))
	if _, err := l.git.CloneFull(ctx, l.opts.RepoURL, dir); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to clone ledger store").
			Fatal().WithContext("url", l.opts.RepoURL).Build()
	}
	if l.opts.Bootstrap != "" {
		if _, err := os.Stat(filepath.Join(dir, l.opts.Bootstrap)); err != nil {
			return errors.LedgerError(fmt.Sprintf("ledger store must contain %s", l.opts.Bootstrap)).
				Fatal().UserAction().WithCause(ErrBootstrapMissing).
				WithContext("path", dir).Build()
		}
	}
	return nil
}

// Dir returns the local working tree.
func (l *Ledger) Dir() string { return l.opts.Dir }

// Exists reports whether c has been attempted. It only looks at the local working tree.
func (l *Ledger) Exists(c candidate.Candidate) bool {
	_, err := os.Stat(l.entryPath(c.Key()))
	return err == nil
}

// Record writes the outcome for c, commits it and pushes it. The entry is durable on
// the remote when Record returns nil.
func (l *Ledger) Record(ctx context.Context, c candidate.Candidate, succeeded bool) error {
	key := c.Key()
	value := valueFailure
	if succeeded {
		value = valueSuccess
	}
	existed := l.Exists(c)
	if err := os.WriteFile(l.entryPath(key), []byte(value), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to write ledger entry").
			WithContext("key", key).Build()
	}
	msg := fmt.Sprintf("Record %s: %s", key, outcomeWord(succeeded))
	if _, err := l.git.Commit(l.opts.Dir, msg, l.opts.Author, key); err != nil {
		if !existed {
			l.discard(key)
		}
		return errors.WrapError(err, errors.CategoryLedger, "failed to commit ledger entry").
			WithContext("key", key).Build()
	}
	if err := l.publish(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to push ledger entry").
			WithContext("key", key).Build()
	}
	slog.Info("Recorded attempt", logfields.Candidate(key), logfields.Outcome(succeeded))
	return nil
}

// discard rolls back an entry that was written but never committed, so Exists does not
// report an attempt the remote has not seen.
func (l *Ledger) discard(key string) {
	if err := l.git.Discard(l.opts.Dir, key); err != nil {
		slog.Warn("Failed to unstage ledger entry", logfields.Candidate(key), logfields.Error(err))
	}
	if err := os.Remove(l.entryPath(key)); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove ledger entry", logfields.Candidate(key), logfields.Error(err))
	}
}

func (l *Ledger) entryPath(key string) string {
	return filepath.Join(l.opts.Dir, key)
}

func outcomeWord(succeeded bool) string {
	if succeeded {
		return "success"
	}
	return "failure"
}
