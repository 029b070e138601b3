package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// FetchResult is what a single fetch reports back to the engine.
type FetchResult struct {
	// Path is the frontier entry that was fetched.
	Path string

	// Text is the extracted content; empty means nothing to emit.
	Text string

	// Links are newly discovered in-scope paths.
	Links []string
}

// Fetcher retrieves one frontier entry and extracts its text and links.
// Fetchers are read-only with respect to the crawl state and are safe to
// call concurrently.
type Fetcher struct {
	source    *Source
	opts      Options
	transport Transport
	parser    *Parser
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher for the resolved source.
func NewFetcher(source *Source, opts Options, transport Transport, logger *slog.Logger) (*Fetcher, error) {
	parser, err := NewParser(source.Boundary, opts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source:    source,
		opts:      opts,
		transport: transport,
		parser:    parser,
		logger:    logger,
	}, nil
}

// Fetch retrieves path. A transport failure is returned only when
// BreakOnError is set; otherwise the page is treated as empty.
func (f *Fetcher) Fetch(ctx context.Context, path string) (*FetchResult, error) {
	location, err := f.source.Resolve(path)
	if err != nil {
		if f.opts.BreakOnError {
			return nil, fmt.Errorf("invalid frontier path %q: %w", path, err)
		}
		return &FetchResult{Path: path}, nil
	}

	if f.opts.LogEnabled {
		f.logger.Info("crawling", "url", location.String())
	}

	body, err := f.transport.Fetch(ctx, location.String())
	if err != nil {
		if f.opts.BreakOnError {
			return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
		}
		f.logger.Warn("fetch failed, skipping page", "url", location.String(), "error", err)
		body = ""
	}

	if f.source.Kind == SourceRepoTree {
		return &FetchResult{Path: path, Text: body}, nil
	}

	result, err := f.parser.Parse(location, strings.NewReader(body))
	if err != nil {
		if f.opts.BreakOnError {
			return nil, fmt.Errorf("failed to parse %s: %w", location, err)
		}
		f.logger.Warn("parse failed, skipping page", "url", location.String(), "error", err)
		return &FetchResult{Path: path}, nil
	}

	return &FetchResult{
		Path:  path,
		Text:  result.Text,
		Links: result.Links,
	}, nil
}
