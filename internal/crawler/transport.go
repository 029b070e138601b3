package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

// Transport retrieves the body of a URL.
// Implementations fail on network errors and non-success statuses; the
// crawler treats any error as a single "fetch failed" condition.
type Transport interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, rawURL string) (string, error)

// Fetch calls f.
func (f TransportFunc) Fetch(ctx context.Context, rawURL string) (string, error) {
	return f(ctx, rawURL)
}

// HTTPTransport fetches pages over HTTP(S) with the configured headers,
// redirect cap, proxy and body size limit.
type HTTPTransport struct {
	client      *http.Client
	headers     map[string]string
	maxBodySize int64
}

// NewHTTPTransport builds an HTTPTransport from fetch options.
func NewHTTPTransport(opts FetchOptions) (*HTTPTransport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("unexpected default transport type")
	}
	rt := base.Clone()
	rt.Proxy = nil

	if opts.ProxyURL != "" {
		if err := configureProxy(rt, opts.ProxyURL); err != nil {
			return nil, err
		}
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects < 0 {
		return nil, ErrInvalidMaxRedirects
	}

	maxBody := opts.MaxBodySize
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}

	client := &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &HTTPTransport{
		client:      client,
		headers:     opts.Headers,
		maxBodySize: maxBody,
	}, nil
}

// configureProxy routes rt through the proxy at rawURL.
func configureProxy(rt *http.Transport, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		rt.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return errors.New("SOCKS5 dialer does not support contexts")
		}
		rt.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return contextDialer.DialContext(ctx, network, addr)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedProxy, u.Scheme)
	}
}

// Client returns the underlying HTTP client, for components such as the
// GitHub lister that should share proxy and timeout settings.
func (t *HTTPTransport) Client() *http.Client {
	return t.client
}

// Fetch performs a GET request and returns the response body as a string.
func (t *HTTPTransport) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")
	req.Header.Set("User-Agent", DefaultUserAgent)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best effort
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	// One byte past the limit tells an exact fit from an oversized body.
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}
	if int64(len(body)) > t.maxBodySize {
		return "", fmt.Errorf("%w: %s is larger than %d bytes", ErrBodyTooLarge, rawURL, t.maxBodySize)
	}
	return string(body), nil
}
