package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/ragcrawler/internal/model"
)

// JSONWriter outputs pages as a single JSON array.
// Pages are buffered and the array is written on Close, so the output is
// always a complete document.
type JSONWriter struct {
	output io.Writer

	// closer is closed after the array is written. Nil for borrowed
	// outputs such as stdout.
	closer io.Closer

	indentPrefix string
	indentString string

	pages []*model.Page
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent sets the prefix and indentation of the JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithCompact disables indentation.
func WithCompact() JSONWriterOption {
	return WithIndent("", "")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is indented with two spaces unless configured otherwise.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		output:       output,
		indentString: "  ",
		pages:        make([]*model.Page, 0),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewJSONFileWriter creates a JSONWriter for the file at path, creating
// parent directories as needed. An existing file is truncated.
func NewJSONFileWriter(path string, opts ...JSONWriterOption) (*JSONWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	w := NewJSONWriter(f, opts...)
	w.closer = f
	return w, nil
}

// WritePage buffers the page.
func (w *JSONWriter) WritePage(page *model.Page) error {
	w.pages = append(w.pages, page)
	return nil
}

// Close writes the JSON array followed by a newline.
func (w *JSONWriter) Close() error {
	enc := json.NewEncoder(w.output)
	enc.SetEscapeHTML(false)
	enc.SetIndent(w.indentPrefix, w.indentString)

	err := enc.Encode(w.pages)
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}
