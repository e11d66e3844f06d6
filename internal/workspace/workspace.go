package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// Manager hands out per-attempt working copies.
type Manager struct {
	baseDir string
	tag     string
	retain  bool
}

// NewManager creates a manager rooted at baseDir (os.TempDir() when empty).
// Directories are prefixed with tag; when retain is true Cleanup keeps them.
func NewManager(baseDir, tag string, retain bool) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if tag == "" {
		tag = "meteorspk"
	}
	return &Manager{baseDir: baseDir, tag: tag, retain: retain}
}

// Retains reports whether working copies outlive their attempt.
func (m *Manager) Retains() bool { return m.retain }

// Create allocates a unique, empty working copy for key.
func (m *Manager) Create(key string) (string, error) {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return "", errors.FileSystemError("failed to create workspace root").
			WithCause(err).WithContext("path", m.baseDir).Build()
	}
	dir, err := os.MkdirTemp(m.baseDir, m.prefix(key))
	if err != nil {
		return "", errors.FileSystemError("failed to create working copy").
			WithCause(err).WithContext("path", m.baseDir).WithContext("key", key).Build()
	}
	slog.Debug("Created working copy", logfields.Candidate(key), logfields.Path(dir))
	return dir, nil
}

// Cleanup removes a working copy created by this manager. With retention it only logs.
func (m *Manager) Cleanup(dir string) error {
	if dir == "" {
		return nil
	}
	if m.retain {
		slog.Info("Retaining working copy", logfields.Path(dir))
		return nil
	}
	if !m.owns(dir) {
		return errors.ValidationError("refusing to remove directory outside workspace root").
			WithContext("path", dir).Build()
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to cleanup working copy: %w", err)
	}
	slog.Debug("Cleaned up working copy", logfields.Path(dir))
	return nil
}

func (m *Manager) prefix(key string) string {
	return m.tag + "-" + strings.ReplaceAll(key, string(filepath.Separator), "_") + "-"
}

func (m *Manager) owns(dir string) bool {
	rel, err := filepath.Rel(m.baseDir, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return false
	}
	return strings.HasPrefix(rel, m.tag+"-")
}
