package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names recognized by the pipeline.
const (
	EnvGitRepoURL     = "GIT_REPO_URL"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvDryRun         = "DRY_RUN"
	EnvRetainWorkdirs = "RETAIN_WORKDIRS"
	EnvMirrorURL      = "MIRROR_URL"
	EnvRateLimit      = "RATE_LIMIT"
	EnvMaxAttempts    = "MAX_ATTEMPTS"
	EnvExportDir      = "EXPORT_DIR"
	EnvStateDir       = "STATE_DIR"
	EnvRedisURL       = "REDIS_URL"
	EnvNATSURL        = "NATS_URL"
	EnvJournalPath    = "JOURNAL_PATH"
	EnvMetricsAddr    = "METRICS_ADDR"
	EnvMarkdownBin    = "MARKDOWN_BIN"
	EnvDiscoveryMode  = "DISCOVERY_MODE"
	EnvS3Endpoint     = "S3_ENDPOINT"
	EnvS3AccessKey    = "S3_ACCESS_KEY"
	EnvS3SecretKey    = "S3_SECRET_KEY"
)

// loadEnvFiles loads .env and .env.local when present. Existing process
// environment variables are never overwritten.
func loadEnvFiles() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", p, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", p)
	}
}

// LookupFunc matches os.LookupEnv; tests inject a map-backed version.
type LookupFunc func(key string) (string, bool)

func applyEnvOverrides(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %q", key, v)
		}
		*dst = b
		return nil
	}

	str(EnvGitRepoURL, &cfg.Ledger.RepoURL)
	str(EnvStateDir, &cfg.Ledger.Dir)
	str(EnvGitHubToken, &cfg.GitHubToken)
	str(EnvMirrorURL, &cfg.Export.MirrorURL)
	str(EnvExportDir, &cfg.Export.Dir)
	str(EnvS3Endpoint, &cfg.Export.S3Endpoint)
	str(EnvS3AccessKey, &cfg.Export.S3AccessKey)
	str(EnvS3SecretKey, &cfg.Export.S3SecretKey)
	str(EnvRedisURL, &cfg.Claim.RedisURL)
	str(EnvNATSURL, &cfg.Notify.NATSURL)
	str(EnvJournalPath, &cfg.Journal.Path)
	str(EnvMetricsAddr, &cfg.Metrics.Addr)
	str(EnvMarkdownBin, &cfg.MarkdownBin)
	if v, ok := lookup(EnvDiscoveryMode); ok && v != "" {
		cfg.Discovery.Mode = DiscoveryMode(v)
	}

	for key, dst := range map[string]*bool{
		EnvDryRun:         &cfg.Packager.DryRun,
		EnvRetainWorkdirs: &cfg.Packager.RetainWorkdirs,
		EnvRateLimit:      &cfg.Discovery.RateLimit,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvMaxAttempts); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", EnvMaxAttempts, v)
		}
		cfg.Run.MaxAttempts = n
	}
	return nil
}
