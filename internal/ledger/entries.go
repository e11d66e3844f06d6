package ledger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/candidate"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// Entry is one recorded attempt.
type Entry struct {
	Candidate candidate.Candidate
	Succeeded bool
}

// Entries lists every recorded attempt in key order. Files that are not ledger
// entries (the bootstrap file, dotfiles, unparseable content) are ignored.
func (l *Ledger) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.opts.Dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryLedger, "failed to read ledger store").
			WithContext("path", l.opts.Dir).Build()
	}
	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || name == l.opts.Bootstrap {
			continue
		}
		c, err := candidate.FromKey(name)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(l.entryPath(name))
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryLedger, "failed to read ledger entry").
				WithContext("key", name).Build()
		}
		switch strings.TrimSpace(string(data)) {
		case "true":
			out = append(out, Entry{Candidate: c, Succeeded: true})
		case "false":
			out = append(out, Entry{Candidate: c})
		default:
			slog.Warn("Ignoring malformed ledger entry", logfields.Candidate(name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Candidate.Key() < out[j].Candidate.Key() })
	return out, nil
}

// RenderSummary renders entries as a markdown table.
func RenderSummary(entries []Entry) []byte {
	var succeeded int
	for _, e := range entries {
		if e.Succeeded {
			succeeded++
		}
	}
	var b bytes.Buffer
	b.WriteString("# Meteor app packaging ledger\n\n")
	fmt.Fprintf(&b, "%d attempted, %d packaged, %d failed.\n\n", len(entries), succeeded, len(entries)-succeeded)
	b.WriteString("| Project | Outcome |\n| --- | --- |\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| [%s](%s) | %s |\n", e.Candidate, e.Candidate.URL(), outcomeWord(e.Succeeded))
	}
	return b.Bytes()
}

// WriteSummary regenerates the bootstrap file as a human-readable summary of all
// entries, then commits and pushes it. An unchanged summary is not committed.
func (l *Ledger) WriteSummary(ctx context.Context) error {
	if l.opts.Bootstrap == "" {
		return nil
	}
	entries, err := l.Entries()
	if err != nil {
		return err
	}
	path := l.entryPath(l.opts.Bootstrap)
	rendered := RenderSummary(entries)
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, rendered) {
		return nil
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to write ledger summary").
			WithContext("path", path).Build()
	}
	if _, err := l.git.Commit(l.opts.Dir, "Update summary", l.opts.Author, l.opts.Bootstrap); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to commit ledger summary").Build()
	}
	if err := l.publish(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryLedger, "failed to push ledger summary").Build()
	}
	slog.Info("Ledger summary updated", logfields.Path(path), slog.Int("entries", len(entries)))
	return nil
}
