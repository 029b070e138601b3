package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStartURL is returned when the starting URL cannot be used to
	// derive a crawl boundary: it does not parse, or lacks an http(s) scheme
	// or a host.
	ErrInvalidStartURL = errors.New("invalid start URL")

	// ErrInvalidMaxConnections is returned when MaxConnections is below 1.
	ErrInvalidMaxConnections = errors.New("invalid max connections: must be at least 1")

	// ErrInvalidMaxRedirects is returned when MaxRedirects is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrUnsupportedProxy is returned for proxy URLs with an unknown scheme.
	ErrUnsupportedProxy = errors.New("unsupported proxy scheme: expected http, https or socks5")

	// ErrBodyTooLarge is returned when a response body exceeds MaxBodySize.
	// The page is treated as a failed fetch; it is never emitted cut short.
	ErrBodyTooLarge = errors.New("response body exceeds the size limit")
)

// StatusError is returned by HTTPTransport when the server answers with a
// non-2xx status code.
type StatusError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status code received.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}
