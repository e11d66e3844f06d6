package packager

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// skippedDirs are never searched for build markers.
var skippedDirs = map[string]bool{".git": true, "node_modules": true}

// FindBuildRoot returns the parent of the marker directory inside tree. When the
// tree holds several markers the shallowest wins; among equally deep markers, the
// first in lexical walk order.
func FindBuildRoot(tree, marker string) (string, error) {
	var matches []string
	err := filepath.WalkDir(tree, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || p == tree {
			return nil
		}
		if skippedDirs[d.Name()] {
			return filepath.SkipDir
		}
		if d.Name() == marker {
			matches = append(matches, p)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return "", errors.FileSystemError("failed to search for build marker").
			WithCause(err).WithContext("path", tree).Build()
	}
	if len(matches) == 0 {
		return "", errors.PackagingError("no build marker in project tree").
			WithCause(ErrNoBuildEntryFound).
			WithContext("marker", marker).WithContext("path", tree).Build()
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if depth(tree, m) < depth(tree, best) {
			best = m
		}
	}
	if len(matches) > 1 {
		slog.Warn("Multiple build markers found; using the shallowest",
			logfields.Path(best), slog.Int("markers", len(matches)))
	}
	return filepath.Dir(best), nil
}

func depth(tree, p string) int {
	rel, err := filepath.Rel(tree, p)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator))
}

// findArtifact resolves pattern (a path or glob relative to root) to one file.
func findArtifact(root, pattern string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	// Glob returns matches in lexical order.
	return matches[0], true
}
