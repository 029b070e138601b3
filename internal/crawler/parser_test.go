package crawler

import (
	"net/url"
	"slices"
	"strings"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", raw, err)
	}
	return u
}

func TestParserLinks(t *testing.T) {
	t.Parallel()

	const doc = `<html><body>
<a href="/docs/a">absolute</a>
<a href="b">relative</a>
<a href="/docs/a">duplicate</a>
<a href="/blog/post">outside prefix</a>
<a href="https://other.example/docs/c">other host</a>
<a href="/docs/c#section">fragment</a>
<a href="/docs/changelog.md">excluded</a>
<a href="mailto:someone@example.com">mail</a>
<a href="">empty</a>
<a>no href</a>
</body></html>`

	opts := DefaultOptions()
	opts.Exclude = []string{"changelog"}

	parser, err := NewParser("https://example.com/docs/", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := parser.Parse(mustURL(t, "https://example.com/docs/intro"), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"/docs/a", "/docs/b", "/docs/c"}
	if !slices.Equal(result.Links, want) {
		t.Errorf("expected links %v, got %v", want, result.Links)
	}
}

func TestParserLinksHostCase(t *testing.T) {
	t.Parallel()

	const doc = `<html><body>
<a href="https://DOCS.Example.com/guide">upper-case host</a>
<a href="https://docs.example.com/setup">lower-case host</a>
<a href="https://Other.Example.com/guide">other host</a>
</body></html>`

	parser, err := NewParser("https://docs.example.com/", DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := parser.Parse(mustURL(t, "https://Docs.Example.com/"), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"/guide", "/setup"}
	if !slices.Equal(result.Links, want) {
		t.Errorf("expected links %v, got %v", want, result.Links)
	}
}

func TestParserText(t *testing.T) {
	t.Parallel()

	t.Run("selector match is converted to markdown", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.Extract = "#main"
		parser, err := NewParser("https://example.com/", opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc := `<html><body><nav>Menu</nav><div id="main"><h1>Title</h1><p>Hello</p></div></body></html>`
		result, err := parser.Parse(mustURL(t, "https://example.com/"), strings.NewReader(doc))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(result.Text, "# Title") || !strings.Contains(result.Text, "Hello") {
			t.Errorf("unexpected text %q", result.Text)
		}
		if strings.Contains(result.Text, "Menu") {
			t.Errorf("expected content outside the selector to be dropped, got %q", result.Text)
		}
	})

	t.Run("selector miss yields empty text but keeps links", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.Extract = "#missing"
		parser, err := NewParser("https://example.com/", opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc := `<html><body><p>Body</p><a href="/next">next</a></body></html>`
		result, err := parser.Parse(mustURL(t, "https://example.com/"), strings.NewReader(doc))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Text != "" {
			t.Errorf("expected empty text, got %q", result.Text)
		}
		if !slices.Equal(result.Links, []string{"/next"}) {
			t.Errorf("unexpected links %v", result.Links)
		}
	})

	t.Run("scripts never reach the text", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body><p>Visible</p><script>var secret = 1;</script></body></html>`

		for _, toMarkdown := range []bool{true, false} {
			opts := DefaultOptions()
			opts.ToMarkdown = toMarkdown
			parser, err := NewParser("https://example.com/", opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			result, err := parser.Parse(mustURL(t, "https://example.com/"), strings.NewReader(doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.Contains(result.Text, "secret") {
				t.Errorf("toMarkdown=%v: script leaked into %q", toMarkdown, result.Text)
			}
			if !strings.Contains(result.Text, "Visible") {
				t.Errorf("toMarkdown=%v: expected visible text in %q", toMarkdown, result.Text)
			}
		}
	})

	t.Run("html mode keeps the fragment", func(t *testing.T) {
		t.Parallel()

		opts := DefaultOptions()
		opts.ToMarkdown = false
		parser, err := NewParser("https://example.com/", opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := parser.Parse(mustURL(t, "https://example.com/"), strings.NewReader(`<html><body><p>Visible</p></body></html>`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Text != "<p>Visible</p>" {
			t.Errorf("unexpected fragment %q", result.Text)
		}
	})

	t.Run("empty body yields empty text", func(t *testing.T) {
		t.Parallel()

		parser, err := NewParser("https://example.com/", DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result, err := parser.Parse(mustURL(t, "https://example.com/"), strings.NewReader(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Text != "" || len(result.Links) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})
}

func TestNewParserInvalidSelector(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Extract = "div["
	if _, err := NewParser("https://example.com/", opts); err == nil {
		t.Error("expected error for invalid selector")
	}
}

func TestToMarkdown(t *testing.T) {
	t.Parallel()

	out, err := ToMarkdown(`<h2>Install</h2><p>Run <code>go install</code>.</p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "## Install") {
		t.Errorf("expected heading, got %q", out)
	}
	if !strings.Contains(out, "`go install`") {
		t.Errorf("expected inline code, got %q", out)
	}
}
