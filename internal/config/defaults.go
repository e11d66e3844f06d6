package config

import "fmt"

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

const (
	// DefaultSearchURL is GitHub code search for Meteor's .meteor/release banner, newest first.
	DefaultSearchURL = "https://github.com/search?o=desc&q=path%3A.meteor+browser+server+%22This+file+contains+information+which+helps+Meteor+properly+upgrade+your%22&ref=searchresults&s=indexed&type=Code&utf8=%E2%9C%93"
	// DefaultAPISearchURL is the repository search API used in json mode.
	DefaultAPISearchURL = "https://api.github.com/search/repositories?q=meteor&sort=stars&per_page=100"
	DefaultBaseURL      = "https://github.com/"
	DefaultMaxPages     = 100
	DefaultPageDelay    = "10s"
)

type ledgerDefaults struct{}

func (ledgerDefaults) Domain() string { return "ledger" }

func (ledgerDefaults) ApplyDefaults(cfg *Config) error {
	l := &cfg.Ledger
	if l.Dir == "" {
		l.Dir = "state"
	}
	if l.Remote == "" {
		l.Remote = "origin"
	}
	if l.AuthorName == "" {
		l.AuthorName = "meteorspk"
	}
	if l.AuthorEmail == "" {
		l.AuthorEmail = "meteorspk@localhost"
	}
	if l.Bootstrap == "" {
		l.Bootstrap = "data.md"
	}
	return nil
}

type discoveryDefaults struct{}

func (discoveryDefaults) Domain() string { return "discovery" }

func (discoveryDefaults) ApplyDefaults(cfg *Config) error {
	d := &cfg.Discovery
	mode, err := discoveryModes.Parse(string(d.Mode), DiscoveryModeHTML)
	if err != nil {
		return err
	}
	d.Mode = mode
	if d.SearchURL == "" {
		if d.Mode == DiscoveryModeJSON {
			d.SearchURL = DefaultAPISearchURL
		} else {
			d.SearchURL = DefaultSearchURL
		}
	}
	if d.BaseURL == "" {
		d.BaseURL = DefaultBaseURL
	}
	if d.MaxPages <= 0 {
		d.MaxPages = DefaultMaxPages
	}
	if d.PageDelay == "" {
		d.PageDelay = DefaultPageDelay
	}
	if d.UserAgent == "" {
		d.UserAgent = "meteorspk"
	}
	return nil
}

type packagerDefaults struct{}

func (packagerDefaults) Domain() string { return "packager" }

func (packagerDefaults) ApplyDefaults(cfg *Config) error {
	p := &cfg.Packager
	if p.Tool == "" {
		p.Tool = "vagrant-spk"
	}
	if p.ProjectType == "" {
		p.ProjectType = "meteor"
	}
	if p.Marker == "" {
		p.Marker = ".meteor"
	}
	if p.ArtifactPath == "" {
		p.ArtifactPath = "*.spk"
	}
	if p.Tag == "" {
		p.Tag = "meteorspk"
	}
	if p.ShallowDepth < 0 {
		p.ShallowDepth = 0
	}
	return nil
}

type exportDefaults struct{}

func (exportDefaults) Domain() string { return "export" }

func (exportDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "spks"
	}
	return nil
}

type ambientDefaults struct{}

func (ambientDefaults) Domain() string { return "ambient" }

func (ambientDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.MarkdownBin == "" {
		cfg.MarkdownBin = "/usr/bin/markdown"
	}
	if cfg.Run.MaxAttempts < 0 {
		cfg.Run.MaxAttempts = 0
	}
	if cfg.Run.Schedule == "" {
		cfg.Run.Schedule = "6h"
	}
	r := &cfg.Retry
	if r.MaxRetries <= 0 {
		r.MaxRetries = 3
	}
	if r.InitialDelay == "" {
		r.InitialDelay = "1s"
	}
	if r.MaxDelay == "" {
		r.MaxDelay = "30s"
	}
	if mode := NormalizeRetryBackoff(string(r.Backoff)); mode != "" {
		r.Backoff = mode
	} else {
		r.Backoff = RetryBackoffExponential
	}
	if cfg.Claim.TTL == "" {
		cfg.Claim.TTL = "6h"
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "meteorspk.attempts"
	}
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{ledgerDefaults{}, discoveryDefaults{}, packagerDefaults{}, exportDefaults{}, ambientDefaults{}}
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("%s defaults: %w", a.Domain(), err)
		}
	}
	return nil
}
