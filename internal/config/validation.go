package config

import (
	"net/url"
	"os"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
)

// Validate checks everything a run needs before any network or git work happens.
func (c *Config) Validate() error {
	if c.Ledger.RepoURL == "" {
		return errors.ConfigError("you need the git repo URL in your environment").
			WithContext("env", EnvGitRepoURL).Build()
	}
	if c.GitHubToken == "" {
		return errors.ConfigError("you need a GitHub token in your environment").
			WithContext("env", EnvGitHubToken).Build()
	}
	if _, err := url.Parse(c.Discovery.SearchURL); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid search url").Fatal().Build()
	}
	if _, err := url.Parse(c.Discovery.BaseURL); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid base url").Fatal().Build()
	}
	for name, raw := range map[string]string{
		"discovery.page_delay": c.Discovery.PageDelay,
		"retry.initial_delay":  c.Retry.InitialDelay,
		"retry.max_delay":      c.Retry.MaxDelay,
		"claim.ttl":            c.Claim.TTL,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid duration").
				Fatal().WithContext("field", name).Build()
		}
	}
	return nil
}

// CheckTooling verifies local binaries the run depends on.
func (c *Config) CheckTooling() error {
	if _, err := os.Stat(c.MarkdownBin); err != nil {
		return errors.ConfigError("you need to have a markdown renderer installed").
			WithContext("path", c.MarkdownBin).WithCause(err).Build()
	}
	return nil
}

// PageDelay returns the parsed inter-page delay, or zero when rate limiting is off.
func (c *Config) PageDelay() time.Duration {
	if !c.Discovery.RateLimit {
		return 0
	}
	d, _ := time.ParseDuration(c.Discovery.PageDelay)
	return d
}

// ClaimTTL returns the parsed claim lease duration.
func (c *Config) ClaimTTL() time.Duration {
	d, _ := time.ParseDuration(c.Claim.TTL)
	return d
}
