package ledger

import (
	"context"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/git"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
	"github.com/paulproteus/for-each-meteor-app/internal/retry"
)

// OptionsFromConfig maps configuration onto ledger options.
func OptionsFromConfig(cfg *config.Config, rec metrics.Recorder) Options {
	return Options{
		Dir:       cfg.Ledger.Dir,
		RepoURL:   cfg.Ledger.RepoURL,
		Remote:    cfg.Ledger.Remote,
		Branch:    cfg.Ledger.Branch,
		Author:    git.Author{Name: cfg.Ledger.AuthorName, Email: cfg.Ledger.AuthorEmail},
		Bootstrap: cfg.Ledger.Bootstrap,
		Retry:     retry.FromConfig(cfg.Retry),
		Recorder:  rec,
	}
}

// NewFromConfig returns the ledger described by cfg without touching the remote.
func NewFromConfig(cfg *config.Config, rec metrics.Recorder) *Ledger {
	return New(OptionsFromConfig(cfg, rec), git.NewClient().WithToken(cfg.GitHubToken))
}

// OpenFromConfig opens (cloning or synchronizing) the ledger described by cfg.
func OpenFromConfig(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (*Ledger, error) {
	l := NewFromConfig(cfg, rec)
	if err := l.Ensure(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// NewClaimerFromConfig returns a RedisClaimer when a Redis URL is configured, else NoopClaimer.
func NewClaimerFromConfig(ctx context.Context, cfg *config.Config) (Claimer, error) {
	if cfg.Claim.RedisURL == "" {
		return NoopClaimer{}, nil
	}
	c, err := NewRedisClaimer(ctx, cfg.Claim.RedisURL, cfg.ClaimTTL())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect claim store").
			Fatal().WithContext("env", "REDIS_URL").Build()
	}
	return c, nil
}
