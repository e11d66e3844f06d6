package export

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

// ErrExportFailed is the cause of every error returned by Exporter.Export.
var ErrExportFailed = stdErrors.New("artifact export failed")

// Indexer regenerates the listing of an export directory.
type Indexer interface {
	Index(ctx context.Context, dir string) error
}

// Mirror copies an export directory to external storage.
type Mirror interface {
	Sync(ctx context.Context, dir string) error
}

// NoopMirror disables mirroring.
type NoopMirror struct{}

func (NoopMirror) Sync(context.Context, string) error { return nil }

// Exporter moves artifacts into the export directory, reindexes and mirrors it.
type Exporter struct {
	dir     string
	indexer Indexer
	mirror  Mirror
}

// New returns an Exporter for dir. A nil indexer or mirror disables that step.
func New(dir string, indexer Indexer, mirror Mirror) *Exporter {
	if mirror == nil {
		mirror = NoopMirror{}
	}
	return &Exporter{dir: dir, indexer: indexer, mirror: mirror}
}

// Dir returns the export directory.
func (e *Exporter) Dir() string { return e.dir }

// Export moves artifact to <dir>/<key><ext> and refreshes index and mirror.
// It returns the exported path.
func (e *Exporter) Export(ctx context.Context, key, artifact string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", exportError("failed to create export directory", err).WithContext("path", e.dir).Build()
	}
	dest := filepath.Join(e.dir, key+filepath.Ext(artifact))
	if err := moveFile(artifact, dest); err != nil {
		return "", exportError("failed to move artifact", err).
			WithContext("from", artifact).WithContext("to", dest).Build()
	}
	slog.Info("Exported artifact", logfields.Candidate(key), logfields.Path(dest))

	if e.indexer != nil {
		if err := e.indexer.Index(ctx, e.dir); err != nil {
			return dest, exportError("failed to regenerate export index", err).WithContext("path", e.dir).Build()
		}
	}
	if err := e.mirror.Sync(ctx, e.dir); err != nil {
		return dest, exportError("failed to mirror export directory", err).WithContext("path", e.dir).Build()
	}
	return dest, nil
}

func exportError(msg string, err error) *errors.ErrorBuilder {
	return errors.ExportError(msg).WithCause(fmt.Errorf("%w: %w", ErrExportFailed, err))
}

// moveFile renames src to dst, copying across filesystems when rename fails.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	tmp := dst + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close destination: %w", err)
	}
	return os.Rename(tmp, dst)
}
