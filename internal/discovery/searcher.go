package discovery

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
	"github.com/paulproteus/for-each-meteor-app/internal/metrics"
)

// Source is anything that yields candidates lazily. The sequence ends early with a
// non-nil error; consumers must treat that error as fatal to the run.
type Source interface {
	Candidates(ctx context.Context) iter.Seq2[candidate.Candidate, error]
}

// Options configures a Searcher.
type Options struct {
	SearchURL string
	BaseURL   string
	// PageParam is the query parameter carrying the page number.
	PageParam string
	MaxPages  int
	// PageDelay is slept after each page except the last. Zero disables rate limiting.
	PageDelay time.Duration
	Token     string
	UserAgent string
	Parser    PageParser
	Client    *http.Client
	Recorder  metrics.Recorder
}

// Searcher pages through a search endpoint.
type Searcher struct {
	searchURL *url.URL
	baseURL   *url.URL
	opts      Options
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewSearcher validates opts and returns a Searcher.
func NewSearcher(opts Options) (*Searcher, error) {
	searchURL, err := url.Parse(opts.SearchURL)
	if err != nil || searchURL.Host == "" {
		return nil, errors.ConfigError("invalid search url").WithContext("url", opts.SearchURL).WithCause(err).Build()
	}
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil || baseURL.Host == "" {
		return nil, errors.ConfigError("invalid base url").WithContext("url", opts.BaseURL).WithCause(err).Build()
	}
	if opts.PageParam == "" {
		opts.PageParam = "p"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if opts.Parser == nil {
		opts.Parser = HTMLParser{}
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Searcher{searchURL: searchURL, baseURL: baseURL, opts: opts, sleep: sleepContext}, nil
}

// Candidates yields every distinct candidate from pages 1..MaxPages. Pages are
// fetched on demand; stopping the range stops the crawl.
func (s *Searcher) Candidates(ctx context.Context) iter.Seq2[candidate.Candidate, error] {
	return func(yield func(candidate.Candidate, error) bool) {
		seen := make(map[string]struct{})
		for page := 1; page <= s.opts.MaxPages; page++ {
			links, err := s.fetchPage(ctx, page)
			if err != nil {
				yield(candidate.Candidate{}, err)
				return
			}
			fresh := 0
			for _, link := range links {
				c, err := candidate.FromLink(link)
				if err != nil {
					slog.Warn("Ignoring search hit that is not a project link", logfields.URL(link), logfields.Page(page))
					continue
				}
				if _, dup := seen[c.Key()]; dup {
					continue
				}
				seen[c.Key()] = struct{}{}
				fresh++
				if !yield(c, nil) {
					return
				}
			}
			s.opts.Recorder.AddCandidatesDiscovered(fresh)
			slog.Debug("Search page consumed", logfields.Page(page), slog.Int("links", len(links)), slog.Int("new", fresh))

			if page < s.opts.MaxPages && s.opts.PageDelay > 0 {
				if err := s.sleep(ctx, s.opts.PageDelay); err != nil {
					yield(candidate.Candidate{}, err)
					return
				}
			}
		}
	}
}

func (s *Searcher) pageURL(page int) string {
	u := *s.searchURL
	q := u.Query()
	q.Set(s.opts.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Searcher) fetchPage(ctx context.Context, page int) ([]string, error) {
	start := time.Now()
	pageURL := s.pageURL(page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDiscovery, "failed to build search request").Fatal().
			WithContext("page", page).Build()
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "token "+s.opts.Token)
	}

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		s.opts.Recorder.ObservePageFetch(time.Since(start), false)
		return nil, errors.WrapError(err, errors.CategoryDiscovery, "search request failed").Fatal().
			WithContext("page", page).WithContext("url", pageURL).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.opts.Recorder.ObservePageFetch(time.Since(start), false)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		b := errors.DiscoveryError(fmt.Sprintf("search page returned %s", resp.Status)).
			WithContext("page", page).WithContext("url", pageURL).WithContext("status", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
			b.RateLimit()
		}
		return nil, b.Build()
	}

	links, err := s.opts.Parser.Parse(resp.Body, s.baseURL)
	s.opts.Recorder.ObservePageFetch(time.Since(start), err == nil)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDiscovery, "failed to parse search page").Fatal().
			WithContext("page", page).Build()
	}
	slog.Info("Fetched search page", logfields.Page(page), slog.Int("results", len(links)), logfields.Duration(time.Since(start)))
	return links, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
