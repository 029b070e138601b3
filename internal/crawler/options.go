package crawler

import (
	"maps"
	"slices"
	"time"
)

// Default crawl settings.
const (
	// DefaultMaxConnections is the number of fetches issued per round.
	DefaultMaxConnections = 5

	// DefaultMaxRedirects caps how many redirects a single fetch follows.
	DefaultMaxRedirects = 3

	// DefaultTimeout bounds a single HTTP request, including redirects.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultUserAgent is sent unless a User-Agent header is configured.
	// Some documentation hosts refuse requests from non-browser agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// Options controls a single crawl run.
// An Options value is built once before the crawl starts and never mutated
// afterwards; the Spider copies it on construction.
type Options struct {
	// MaxConnections is the upper bound on concurrently in-flight fetches
	// per round. Must be at least 1.
	MaxConnections int

	// Exclude lists final path segment names that are dropped from the
	// frontier. Matching is case-insensitive; see ShouldExclude.
	Exclude []string

	// Extract is an optional CSS selector. When set, only the inner HTML of
	// the first matching element becomes the page text.
	Extract string

	// ToMarkdown converts the extracted HTML to Markdown.
	ToMarkdown bool

	// BreakOnError aborts the whole crawl on the first failed fetch.
	// When false, a failed fetch is treated as an empty page.
	BreakOnError bool

	// LogEnabled reports crawl progress to the logger.
	LogEnabled bool

	// Fetch is passed to the transport unchanged.
	Fetch FetchOptions
}

// FetchOptions configures the HTTP transport.
type FetchOptions struct {
	// Headers are sent with every request.
	Headers map[string]string

	// ProxyURL routes requests through a proxy. Supported schemes are
	// http, https and socks5. Empty means a direct connection.
	ProxyURL string

	// MaxRedirects is the number of redirects a request may follow.
	// Zero disables redirects.
	MaxRedirects int

	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration

	// MaxBodySize limits the bytes read from a response body.
	// Zero uses DefaultMaxBodySize.
	MaxBodySize int64
}

// DefaultOptions returns the options used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		MaxConnections: DefaultMaxConnections,
		Exclude:        []string{},
		ToMarkdown:     true,
		BreakOnError:   true,
		LogEnabled:     true,
		Fetch: FetchOptions{
			Headers:      map[string]string{"User-Agent": DefaultUserAgent},
			MaxRedirects: DefaultMaxRedirects,
			Timeout:      DefaultTimeout,
			MaxBodySize:  DefaultMaxBodySize,
		},
	}
}

// Validate reports whether the options can drive a crawl.
func (o Options) Validate() error {
	if o.MaxConnections < 1 {
		return ErrInvalidMaxConnections
	}
	if o.Fetch.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}
	return nil
}

// clone returns a deep copy so the Spider never shares slices or maps with
// the caller.
func (o Options) clone() Options {
	c := o
	c.Exclude = slices.Clone(o.Exclude)
	c.Fetch.Headers = maps.Clone(o.Fetch.Headers)
	return c
}
