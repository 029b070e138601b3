package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/ragcrawler/internal/model"
)

// Extensions used by FilesWriter.
const (
	MarkdownExt = ".md"
	HTMLExt     = ".html"
)

// ErrUnsafePath is returned when a page would be written outside the output
// directory.
var ErrUnsafePath = errors.New("page path escapes the output directory")

// FilesWriter writes each page to its own file below a directory.
// The file location mirrors the page URL path; see model.Page.RelativeFile.
type FilesWriter struct {
	dir string
	ext string
}

// NewFilesWriter creates a FilesWriter rooted at dir that appends ext to
// every file name.
func NewFilesWriter(dir, ext string) *FilesWriter {
	return &FilesWriter{dir: dir, ext: ext}
}

// ExtensionFor returns the file extension for the page text format.
func ExtensionFor(toMarkdown bool) string {
	if toMarkdown {
		return MarkdownExt
	}
	return HTMLExt
}

// WritePage writes the page text to its file, creating directories as
// needed. A later page mapping to the same file overwrites it.
func (w *FilesWriter) WritePage(page *model.Page) error {
	rel, err := page.RelativeFile(w.ext)
	if err != nil {
		return fmt.Errorf("invalid page path %s: %w", page.Path, err)
	}

	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, page.Path)
	}

	target := filepath.Join(w.dir, local)
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", page.Path, err)
	}
	if err := os.WriteFile(target, []byte(page.Text), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

// Close is a no-op; every page is written immediately.
func (w *FilesWriter) Close() error {
	return nil
}
