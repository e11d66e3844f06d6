package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/paulproteus/for-each-meteor-app/internal/logfields"
)

const (
	indexMarkdown = "index.md"
	indexHTML     = "index.html"
)

// ScriptIndexer runs an external index-regeneration script inside the export directory.
type ScriptIndexer struct {
	Script string
}

func (s ScriptIndexer) Index(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, s.Script, dir)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	slog.Debug("Running index script", logfields.Command(s.Script), logfields.Path(dir))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("index script %s: %w: %s", s.Script, err, strings.TrimSpace(out.String()))
	}
	return nil
}

// MarkdownIndexer writes index.md listing every artifact and renders it to index.html.
type MarkdownIndexer struct {
	Title string
	md    goldmark.Markdown
}

// NewMarkdownIndexer returns an indexer with the given page title.
func NewMarkdownIndexer(title string) *MarkdownIndexer {
	if title == "" {
		title = "Packages"
	}
	return &MarkdownIndexer{Title: title, md: goldmark.New()}
}

func (m *MarkdownIndexer) Index(_ context.Context, dir string) error {
	names, err := artifactNames(dir)
	if err != nil {
		return err
	}
	source := renderIndexMarkdown(m.Title, names)
	if err := os.WriteFile(filepath.Join(dir, indexMarkdown), source, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", indexMarkdown, err)
	}

	var body bytes.Buffer
	if err := m.md.Convert(source, &body); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	var page bytes.Buffer
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n", html.EscapeString(m.Title))
	page.Write(body.Bytes())
	page.WriteString("</body></html>\n")
	if err := os.WriteFile(filepath.Join(dir, indexHTML), page.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", indexHTML, err)
	}
	return nil
}

func renderIndexMarkdown(title string, names []string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(names) == 0 {
		b.WriteString("No packages yet.\n")
		return b.Bytes()
	}
	for _, n := range names {
		fmt.Fprintf(&b, "- [%s](%s)\n", n, n)
	}
	return b.Bytes()
}

// artifactNames lists regular files in dir other than the generated index files.
func artifactNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read export directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.Type().IsRegular() || n == indexMarkdown || n == indexHTML || strings.HasPrefix(n, ".") || strings.HasSuffix(n, ".partial") {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
