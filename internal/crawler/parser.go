package crawler

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Parser extracts in-scope links and page text from HTML documents.
// A Parser holds no per-document state and may be shared by concurrent
// fetches.
type Parser struct {
	// boundary is the URL prefix links must share to stay in scope.
	boundary string

	// exclude are final-segment exclusion rules.
	exclude []string

	// extract is the optional content selector.
	extract string

	// toMarkdown enables HTML to Markdown conversion.
	toMarkdown bool
}

// ParseResult is the outcome of parsing one HTML document.
type ParseResult struct {
	// Text is the extracted content. Empty when the content selector
	// matched nothing.
	Text string

	// Links are in-scope frontier paths, deduplicated, in document order.
	Links []string
}

// NewParser creates a Parser for a crawl bounded by boundary.
// It fails when opts.Extract is not a valid CSS selector.
func NewParser(boundary string, opts Options) (*Parser, error) {
	if opts.Extract != "" {
		if _, err := cascadia.Compile(opts.Extract); err != nil {
			return nil, fmt.Errorf("invalid extract selector %q: %w", opts.Extract, err)
		}
	}
	return &Parser{
		boundary:   boundary,
		exclude:    opts.Exclude,
		extract:    opts.Extract,
		toMarkdown: opts.ToMarkdown,
	}, nil
}

// Parse reads an HTML document served at pageURL.
// Links are discovered before text extraction, so a selector miss still
// reports the page's links.
func (p *Parser) Parse(pageURL *url.URL, content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links: p.extractLinks(pageURL, doc),
	}

	text, err := p.extractText(doc)
	if err != nil {
		return nil, err
	}
	result.Text = text

	return result, nil
}

// extractLinks walks the document and collects in-scope anchor targets.
func (p *Parser) extractLinks(pageURL *url.URL, doc *html.Node) []string {
	links := make([]string, 0)
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := getAttr(n, "href"); ok {
				if link, keep := p.scopeLink(pageURL, href); keep && !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

// scopeLink resolves href against the page URL and returns its path when the
// link stays inside the crawl boundary and passes the exclusion rules.
func (p *Parser) scopeLink(pageURL *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	resolved := pageURL.ResolveReference(ref)
	resolved.Host = strings.ToLower(resolved.Host)
	if resolved.Path == "" {
		resolved.Path = "/"
	}
	if !strings.HasPrefix(resolved.String(), p.boundary) {
		return "", false
	}

	link := resolved.EscapedPath()
	if strings.Contains(link, "#") || Excluded(p.exclude, link) {
		return "", false
	}
	return link, true
}

// extractText selects the content subtree, strips scripts and converts it.
func (p *Parser) extractText(doc *html.Node) (string, error) {
	gq := goquery.NewDocumentFromNode(doc)

	var sel *goquery.Selection
	if p.extract != "" {
		sel = gq.Find(p.extract).First()
	} else {
		sel = gq.Find("body").First()
	}
	if sel.Length() == 0 {
		return "", nil
	}

	sel.Find("script").Remove()

	fragment, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}

	if !p.toMarkdown {
		return fragment, nil
	}
	return ToMarkdown(fragment)
}

// ToMarkdown converts an HTML fragment to Markdown. Script contents never
// appear in the output.
func ToMarkdown(fragment string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script")

	out, err := converter.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
