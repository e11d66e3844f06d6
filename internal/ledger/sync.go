package ledger

import (
	"context"
	"log/slog"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/git"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// Sync publishes local commits and picks up remote ones: push, pull --rebase, push.
// The first push may be rejected when another worker got there first; that is
// resolved by the rebase.
func (l *Ledger) Sync(ctx context.Context) error {
	if err := l.git.Push(ctx, l.opts.Dir, l.opts.Remote); err != nil {
		if !git.IsPushRejected(err) {
			return errors.WrapError(err, errors.CategoryLedger, "failed to push ledger store").
				Fatal().WithContext("path", l.opts.Dir).Build()
		}
		slog.Debug("Initial ledger push rejected; rebasing", logfields.Path(l.opts.Dir))
	}
	if err := l.pullRebase(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to rebase ledger store").
			Fatal().WithContext("path", l.opts.Dir).Build()
	}
	if err := l.publish(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to push ledger store").
			Fatal().WithContext("path", l.opts.Dir).Build()
	}
	slog.Info("Ledger store synchronized", logfields.Path(l.opts.Dir))
	return nil
}

// publish pushes, rebasing onto the remote before each retry.
func (l *Ledger) publish(ctx context.Context) error {
	return l.opts.Retry.Do(ctx, retryablePush, func(attempt int) error {
		if attempt > 0 {
			l.opts.Recorder.IncLedgerPushRetry()
			slog.Warn("Retrying ledger push", logfields.Path(l.opts.Dir), slog.Int("attempt", attempt))
			if err := l.pullRebase(ctx); err != nil {
				return err
			}
		}
		return l.git.Push(ctx, l.opts.Dir, l.opts.Remote)
	})
}

func (l *Ledger) pullRebase(ctx context.Context) error {
	branch := l.opts.Branch
	if branch == "" {
		b, err := git.HeadBranch(l.opts.Dir)
		if err != nil {
			return err
		}
		branch = b
	}
	return l.git.PullRebase(ctx, l.opts.Dir, l.opts.Remote, branch, l.opts.Author)
}

func retryablePush(err error) bool {
	if git.IsPushRejected(err) {
		return true
	}
	ce, ok := errors.AsClassified(err)
	return ok && ce.CanRetry()
}
