package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/normalization"
)

// Config is the complete pipeline configuration. Values come from an optional YAML
// file, then environment overrides, then defaults.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Packager  PackagerConfig  `yaml:"packager"`
	Export    ExportConfig    `yaml:"export"`
	Run       RunConfig       `yaml:"run"`
	Retry     RetryConfig     `yaml:"retry"`
	Claim     ClaimConfig     `yaml:"claim,omitempty"`
	Journal   JournalConfig   `yaml:"journal,omitempty"`
	Notify    NotifyConfig    `yaml:"notify,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`

	// MarkdownBin must exist on disk before a run starts.
	MarkdownBin string `yaml:"markdown_bin"`
	GitHubToken string `yaml:"github_token,omitempty"`
}

// LedgerConfig describes the git-backed attempt ledger.
type LedgerConfig struct {
	RepoURL     string `yaml:"repo_url"`
	Dir         string `yaml:"dir"`
	Remote      string `yaml:"remote"`
	Branch      string `yaml:"branch,omitempty"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	// Bootstrap is the file a freshly cloned store must already contain.
	Bootstrap string `yaml:"bootstrap"`
}

// DiscoveryMode selects how a search page is parsed.
type DiscoveryMode string

const (
	DiscoveryModeHTML DiscoveryMode = "html"
	DiscoveryModeJSON DiscoveryMode = "json"
)

var discoveryModes = normalization.NewEnum("discovery mode", map[string]DiscoveryMode{
	string(DiscoveryModeHTML): DiscoveryModeHTML,
	string(DiscoveryModeJSON): DiscoveryModeJSON,
})

// DiscoveryConfig controls the paginated candidate search.
type DiscoveryConfig struct {
	Mode      DiscoveryMode `yaml:"mode"`
	SearchURL string        `yaml:"search_url"`
	BaseURL   string        `yaml:"base_url"`
	MaxPages  int           `yaml:"max_pages"`
	RateLimit bool          `yaml:"rate_limit"`
	PageDelay string        `yaml:"page_delay"`
	UserAgent string        `yaml:"user_agent"`
}

// PackagerConfig controls one packaging attempt.
type PackagerConfig struct {
	Tool         string `yaml:"tool"`
	ProjectType  string `yaml:"project_type"`
	Marker       string `yaml:"marker"`
	ArtifactPath string `yaml:"artifact_path"`
	WorkRoot     string `yaml:"work_root,omitempty"`
	Tag          string `yaml:"tag"`
	ShallowDepth int    `yaml:"shallow_depth"`
	DryRun       bool   `yaml:"dry_run"`
	// DryRunSucceeds is the outcome recorded for dry-run attempts.
	DryRunSucceeds *bool `yaml:"dry_run_succeeds,omitempty"`
	RetainWorkdirs bool  `yaml:"retain_workdirs"`
}

// DryRunOutcome returns the outcome recorded for dry-run attempts.
func (p PackagerConfig) DryRunOutcome() bool {
	return p.DryRunSucceeds == nil || *p.DryRunSucceeds
}

// ExportConfig controls where artifacts go after a successful build.
type ExportConfig struct {
	Dir         string `yaml:"dir"`
	IndexScript string `yaml:"index_script,omitempty"`
	MirrorURL   string `yaml:"mirror_url,omitempty"`
	S3Endpoint  string `yaml:"s3_endpoint,omitempty"`
	S3AccessKey string `yaml:"s3_access_key,omitempty"`
	S3SecretKey string `yaml:"s3_secret_key,omitempty"`
	S3UseSSL    bool   `yaml:"s3_use_ssl,omitempty"`
}

// RunConfig bounds a single run.
type RunConfig struct {
	// MaxAttempts caps dispatched candidates; zero means unlimited.
	MaxAttempts int    `yaml:"max_attempts"`
	Schedule    string `yaml:"schedule,omitempty"`
}

type RetryConfig struct {
	MaxRetries   int              `yaml:"max_retries"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
	Backoff      RetryBackoffMode `yaml:"backoff"`
}

type ClaimConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"`
	TTL      string `yaml:"ttl,omitempty"`
}

type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load reads configuration from configPath (optional), applies .env files,
// environment overrides and defaults. An empty or missing configPath is not an
// error: the pipeline is normally configured from the environment alone.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := &Config{
		Ledger: LedgerConfig{RepoURL: "${GIT_REPO_URL}"},
		Export: ExportConfig{MirrorURL: "${MIRROR_URL}"},
		Run:    RunConfig{MaxAttempts: 10},
	}
	if err := applyDefaults(example); err != nil {
		return err
	}
	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
