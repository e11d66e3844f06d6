package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
)

const searchPage = `<!DOCTYPE html><html><body>
<div class="code-list">
  <div class="code-list-item">
    <p class="title">
      <a href="/alice/todos">alice/todos</a>
      &ndash; <a href="/alice/todos/blob/abc/.meteor/release">.meteor/release</a>
    </p>
  </div>
  <div class="code-list-item">
    <p class="title"><a href="https://github.com/bob/chat/blob/def/.meteor/release">bob/chat</a></p>
  </div>
  <div class="code-list-item">
    <p class="title"><a href="/alice/todos">duplicate</a></p>
  </div>
  <p class="title"><a href="/search?q=x">not a project</a></p>
  <p class="summary"><a href="/carol/ignored">not a title</a></p>
</div></body></html>`

func collect(t *testing.T, src Source) ([]string, error) {
	t.Helper()
	var keys []string
	for c, err := range src.Candidates(context.Background()) {
		if err != nil {
			return keys, err
		}
		keys = append(keys, c.Key())
	}
	return keys, nil
}

func TestHTMLParser_ExtractsTitleAnchors(t *testing.T) {
	base, _ := url.Parse("https://github.com/")
	links, err := HTMLParser{}.Parse(strings.NewReader(searchPage), base)
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://github.com/alice/todos",
		"https://github.com/bob/chat/blob/def/.meteor/release",
		"https://github.com/alice/todos",
		"https://github.com/search?q=x",
	}, links)
}

func TestJSONParser(t *testing.T) {
	base, _ := url.Parse("https://github.com/")
	body := `{"total_count":2,"items":[{"html_url":"https://github.com/a/one"},{"html_url":"/b/two"},{"html_url":""}]}`
	links, err := JSONParser{}.Parse(strings.NewReader(body), base)
	require.NoError(t, err)
	require.Equal(t, []string{"https://github.com/a/one", "https://github.com/b/two"}, links)

	_, err = JSONParser{}.Parse(strings.NewReader("<html>"), base)
	require.Error(t, err)
}

func TestSearcher_PagesAndDeduplicates(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages = append(pages, r.URL.Query().Get("p"))
		_, _ = fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	s, err := NewSearcher(Options{SearchURL: srv.URL + "/search?q=meteor", BaseURL: "https://github.com/", MaxPages: 2})
	require.NoError(t, err)

	keys, err := collect(t, s)
	require.NoError(t, err)
	require.Equal(t, []string{"alice.todos", "bob.chat"}, keys, "duplicates across pages are yielded once")
	require.Equal(t, []string{"1", "2"}, pages, "stops at the page cap")
}

func TestSearcher_IsLazy(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	s, err := NewSearcher(Options{SearchURL: srv.URL, BaseURL: "https://github.com/", MaxPages: 50})
	require.NoError(t, err)

	for c, err := range s.Candidates(context.Background()) {
		require.NoError(t, err)
		require.Equal(t, "alice.todos", c.Key())
		break
	}
	require.EqualValues(t, 1, requests.Load())
}

func TestSearcher_NonOKPageIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "2" {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	s, err := NewSearcher(Options{SearchURL: srv.URL, BaseURL: "https://github.com/", MaxPages: 5})
	require.NoError(t, err)

	keys, err := collect(t, s)
	require.Error(t, err)
	require.Equal(t, []string{"alice.todos", "bob.chat"}, keys, "page 1 results are still delivered")

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, errors.CategoryDiscovery, classified.Category())
	require.True(t, classified.IsFatal())
	require.Equal(t, errors.RetryRateLimit, classified.RetryStrategy())
}

func TestSearcher_RateLimitSleepsBetweenPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	s, err := NewSearcher(Options{SearchURL: srv.URL, BaseURL: "https://github.com/", MaxPages: 3, PageDelay: time.Minute})
	require.NoError(t, err)
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err = collect(t, s)
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Minute, time.Minute}, slept, "no sleep after the final page")
}

func TestSearcher_SendsTokenAndUserAgent(t *testing.T) {
	var got http.Header
	var page string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		page = r.URL.Query().Get("page")
		_, _ = fmt.Fprint(w, `{"items":[{"html_url":"https://github.com/a/b"}]}`)
	}))
	defer srv.Close()

	s, err := NewSearcher(Options{
		SearchURL: srv.URL, BaseURL: "https://github.com/", MaxPages: 1,
		Token: "s3cret", UserAgent: "meteorspk-test", Parser: JSONParser{}, PageParam: "page",
	})
	require.NoError(t, err)
	keys, err := collect(t, s)
	require.NoError(t, err)
	require.Equal(t, []string{"a.b"}, keys)
	require.Equal(t, "token s3cret", got.Get("Authorization"))
	require.Equal(t, "meteorspk-test", got.Get("User-Agent"))
	require.Equal(t, "1", page)
}

func TestNewSearcher_RejectsBadURLs(t *testing.T) {
	_, err := NewSearcher(Options{SearchURL: "not a url", BaseURL: "https://github.com/"})
	require.Error(t, err)
	_, err = NewSearcher(Options{SearchURL: "https://github.com/search", BaseURL: ""})
	require.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	keys, err := collect(t, StaticSource{URLs: []string{"https://github.com/a/b", "https://github.com/c/d"}})
	require.NoError(t, err)
	require.Equal(t, []string{"a.b", "c.d"}, keys)

	keys, err = collect(t, StaticSource{URLs: []string{"https://github.com/a/b", "https://github.com/c"}})
	require.Error(t, err)
	require.ErrorIs(t, err, candidate.ErrInvalidCandidate)
	require.Equal(t, []string{"a.b"}, keys)
}
