package discovery

import (
	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
)

// NewFromConfig builds the Searcher described by the discovery section.
func NewFromConfig(cfg *config.Config, rec metrics.Recorder) (*Searcher, error) {
	opts := Options{
		SearchURL: cfg.Discovery.SearchURL,
		BaseURL:   cfg.Discovery.BaseURL,
		MaxPages:  cfg.Discovery.MaxPages,
		PageDelay: cfg.PageDelay(),
		UserAgent: cfg.Discovery.UserAgent,
		Recorder:  rec,
	}
	if cfg.Discovery.Mode == config.DiscoveryModeJSON {
		opts.Parser = JSONParser{}
		opts.PageParam = "page"
		// The API authenticates with the token; the web search page does not accept it.
		opts.Token = cfg.GitHubToken
	}
	return NewSearcher(opts)
}
