package output

import (
	"errors"

	"github.com/nao1215/ragcrawler/internal/model"
)

// Writer receives crawled pages.
// WritePage is called once per page in crawl order; Close flushes any
// buffered output and releases resources. Writers are not safe for
// concurrent use.
type Writer interface {
	WritePage(page *model.Page) error
	Close() error
}

// MultiWriter writes every page to several Writers.
// Our Writer interface deals in pages, so io.MultiWriter does not apply.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WritePage writes the page to every Writer, stopping on the first error.
func (m *MultiWriter) WritePage(page *model.Page) error {
	for _, w := range m.writers {
		if err := w.WritePage(page); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every Writer, even after a failure, and joins the errors.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
