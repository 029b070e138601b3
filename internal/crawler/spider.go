package crawler

import (
	"context"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/ragcrawler/internal/model"
)

// Spider drives a crawl: it pulls fixed-size batches from the frontier,
// fetches each batch concurrently, and merges discovered links back into
// the frontier between rounds.
type Spider struct {
	// opts are copied on construction and never mutated.
	opts Options

	// transport performs network requests. Built from opts.Fetch when nil.
	transport Transport

	// lister enumerates repository trees in repository mode. A GitHub
	// lister sharing the transport's client is used when nil.
	lister RepoLister

	logger *slog.Logger

	// mutex protects stats.
	mutex sync.Mutex
	stats SpiderStats
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithTransport sets the transport used for page requests.
func WithTransport(t Transport) SpiderOption {
	return func(s *Spider) {
		s.transport = t
	}
}

// WithRepoLister sets the repository tree lister.
func WithRepoLister(l RepoLister) SpiderOption {
	return func(s *Spider) {
		s.lister = l
	}
}

// WithLogger sets the logger for progress and warnings.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider for the given options.
func NewSpider(opts Options, spiderOpts ...SpiderOption) *Spider {
	s := &Spider{
		opts: opts.clone(),
	}
	for _, opt := range spiderOpts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SpiderStats describes the most recent crawl.
type SpiderStats struct {
	// Source is the seeding strategy that was used.
	Source SourceKind

	// Rounds is the number of batches fetched.
	Rounds int

	// PathsVisited is the number of frontier entries fetched.
	PathsVisited int

	// PagesEmitted is the number of pages handed to the caller.
	PagesEmitted int
}

// Stats returns statistics of the most recent crawl.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stats
}

// Crawl returns a lazy sequence of the pages reachable from startURL.
//
// Each round fetches up to MaxConnections frontier entries concurrently and
// waits for all of them. Results are then processed in batch order: pages
// with non-empty text are yielded and their links appended to the frontier
// unless an equivalent entry exists. The sequence ends when every frontier
// entry has been fetched.
//
// Stopping the range loop abandons the crawl; no further rounds run. A fatal
// error is yielded once with a nil page and ends the sequence.
func (s *Spider) Crawl(ctx context.Context, startURL string) iter.Seq2[*model.Page, error] {
	return func(yield func(*model.Page, error) bool) {
		if err := s.opts.Validate(); err != nil {
			yield(nil, err)
			return
		}

		transport, lister, err := s.dependencies()
		if err != nil {
			yield(nil, err)
			return
		}

		src, err := ResolveSource(ctx, startURL, lister, s.logger)
		if err != nil {
			yield(nil, err)
			return
		}

		fetcher, err := NewFetcher(src, s.opts, transport, s.logger)
		if err != nil {
			yield(nil, err)
			return
		}

		s.resetStats(src.Kind)
		frontier := NewFrontier(src.Seeds...)

		for cursor := 0; cursor < frontier.Len(); {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			batch := frontier.Batch(cursor, s.opts.MaxConnections)
			results, err := s.fetchBatch(ctx, fetcher, batch)
			if err != nil {
				yield(nil, err)
				return
			}
			s.recordRound()

			for _, r := range results {
				if r.Text != "" {
					page := &model.Page{
						Path: src.Start.ResolveReference(parseRef(r.Path)).String(),
						Text: r.Text,
					}
					s.recordPage()
					if !yield(page, nil) {
						return
					}
				}
				for _, link := range r.Links {
					frontier.Add(link)
				}
			}

			cursor += len(batch)
			s.recordVisited(cursor)
		}

		if s.opts.LogEnabled {
			stats := s.Stats()
			s.logger.Info("crawl completed",
				"pages", stats.PagesEmitted,
				"paths", stats.PathsVisited,
				"rounds", stats.Rounds,
			)
		}
	}
}

// Collect runs a crawl to completion and returns every page.
// Pages gathered before a fatal error are returned with the error.
func (s *Spider) Collect(ctx context.Context, startURL string) ([]*model.Page, error) {
	pages := make([]*model.Page, 0)
	for page, err := range s.Crawl(ctx, startURL) {
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// fetchBatch fetches every path of the batch concurrently and returns the
// results in batch order. All fetches are awaited even when one fails.
func (s *Spider) fetchBatch(ctx context.Context, fetcher *Fetcher, batch []string) ([]*FetchResult, error) {
	results := make([]*FetchResult, len(batch))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConnections)

	for i, path := range batch {
		g.Go(func() error {
			r, err := fetcher.Fetch(ctx, path)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dependencies returns the transport and lister, building defaults.
func (s *Spider) dependencies() (Transport, RepoLister, error) {
	transport := s.transport
	lister := s.lister

	if transport == nil {
		t, err := NewHTTPTransport(s.opts.Fetch)
		if err != nil {
			return nil, nil, err
		}
		transport = t
	}

	if lister == nil {
		var client *http.Client
		if t, ok := transport.(*HTTPTransport); ok {
			client = t.Client()
		}
		l, err := NewGitHubLister(client, WithGitHubLogger(s.logger))
		if err != nil {
			return nil, nil, err
		}
		lister = l
	}

	return transport, lister, nil
}

func (s *Spider) resetStats(kind SourceKind) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats = SpiderStats{Source: kind}
}

func (s *Spider) recordRound() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.Rounds++
}

func (s *Spider) recordPage() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.PagesEmitted++
}

func (s *Spider) recordVisited(n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stats.PathsVisited = n
}

// parseRef parses a frontier path. Paths that reached this point were
// already resolved by the fetcher, so the fallback is never expected.
func parseRef(path string) *url.URL {
	u, err := url.Parse(path)
	if err != nil {
		return &url.URL{Path: path}
	}
	return u
}
