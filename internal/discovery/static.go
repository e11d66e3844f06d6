package discovery

import (
	"context"
	"iter"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
)

// StaticSource yields a fixed list of project URLs, for packaging known apps
// directly instead of crawling search results.
type StaticSource struct {
	URLs []string
}

func (s StaticSource) Candidates(ctx context.Context) iter.Seq2[candidate.Candidate, error] {
	return func(yield func(candidate.Candidate, error) bool) {
		for _, raw := range s.URLs {
			if err := ctx.Err(); err != nil {
				yield(candidate.Candidate{}, err)
				return
			}
			c, err := candidate.FromURL(raw)
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}
