package model

import (
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Page is a single crawled document.
// A Page is immutable once emitted by the crawler; ownership passes to the
// consumer of the crawl.
type Page struct {
	// Path is the absolute URL the text was retrieved from.
	Path string `json:"path"`

	// Text is the extracted content, either Markdown or an HTML fragment
	// depending on the crawl options. Raw file content in repository mode.
	Text string `json:"text"`
}

// ContentHash returns the hex-encoded BLAKE2b-256 digest of the page text.
// Empty text hashes to the empty string.
func (p *Page) ContentHash() string {
	if p.Text == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(p.Text))
	return hex.EncodeToString(sum[:])
}

// Size returns the length of the page text in bytes.
func (p *Page) Size() int {
	return len(p.Text)
}

// RelativeFile returns the slash-separated file location for the page,
// relative to an output directory, with ext appended.
//
// A trailing "/" or ".html" is removed from the URL before its path is used:
// "https://example.com/docs/" becomes "docs" + ext and
// "https://example.com/docs/intro.html" becomes "docs/intro" + ext.
// The site root maps to "index".
func (p *Page) RelativeFile(ext string) (string, error) {
	trimmed := strings.TrimSuffix(p.Path, "/")
	trimmed = strings.TrimSuffix(trimmed, ".html")

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}

	name := strings.Trim(u.Path, "/")
	if name == "" {
		name = "index"
	}
	return name + ext, nil
}
