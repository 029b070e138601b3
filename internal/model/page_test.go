package model

import (
	"testing"
)

func TestPageContentHash(t *testing.T) {
	t.Parallel()

	t.Run("empty text has empty hash", func(t *testing.T) {
		t.Parallel()
		p := &Page{Path: "https://example.com/"}
		if got := p.ContentHash(); got != "" {
			t.Errorf("expected empty hash, got %q", got)
		}
	})

	t.Run("hash is stable and 64 hex characters", func(t *testing.T) {
		t.Parallel()
		a := &Page{Path: "https://example.com/a", Text: "# Hello"}
		b := &Page{Path: "https://example.com/b", Text: "# Hello"}
		if a.ContentHash() != b.ContentHash() {
			t.Error("expected identical text to hash identically")
		}
		if len(a.ContentHash()) != 64 {
			t.Errorf("expected 64 characters, got %d", len(a.ContentHash()))
		}
	})

	t.Run("different text hashes differently", func(t *testing.T) {
		t.Parallel()
		a := &Page{Text: "one"}
		b := &Page{Text: "two"}
		if a.ContentHash() == b.ContentHash() {
			t.Error("expected different hashes")
		}
	})
}

func TestPageRelativeFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		ext  string
		want string
	}{
		{name: "directory page", path: "https://example.com/docs/", ext: ".md", want: "docs.md"},
		{name: "html page", path: "https://example.com/docs/intro.html", ext: ".md", want: "docs/intro.md"},
		{name: "extensionless page", path: "https://example.com/docs/intro", ext: ".html", want: "docs/intro.html"},
		{name: "site root", path: "https://example.com/", ext: ".md", want: "index.md"},
		{name: "raw markdown file", path: "https://raw.githubusercontent.com/o/r/main/docs/a.md", ext: ".md", want: "o/r/main/docs/a.md.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &Page{Path: tt.path}
			got, err := p.RelativeFile(tt.ext)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
