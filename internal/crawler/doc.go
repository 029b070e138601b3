// Package crawler discovers and retrieves the text of a website or of a
// GitHub repository's documentation tree.
//
// # Architecture
//
// The Spider type drives the crawl. It owns the Frontier, an append-only list
// of paths, and processes it in rounds: up to MaxConnections entries are
// fetched concurrently, and only once the whole batch has completed are the
// results emitted and their links merged into the frontier. Processing
// always follows batch order, so emission order and frontier growth are
// reproducible for a deterministic transport.
//
// # Components
//
//   - Spider: the round-based crawl engine, exposed as an iter.Seq2
//   - Fetcher: fetches one path and reports its text and links
//   - Parser: HTML link discovery and content extraction
//   - Source: the seeding strategy, generic site or GitHub repository tree
//   - Frontier: ordered path list deduplicated by FrontierKey
//   - HTTPTransport: net/http transport with proxy and redirect settings
//   - GitHubLister: repository tree listing through the GitHub API
//
// # Scope
//
// Links are followed only when their absolute URL starts with the crawl
// boundary, the starting URL truncated to its directory. Exclusion rules
// match the final path segment only.
//
// # Usage
//
//	spider := crawler.NewSpider(crawler.DefaultOptions())
//	for page, err := range spider.Crawl(ctx, "https://example.com/docs/") {
//		if err != nil {
//			return err
//		}
//		fmt.Println(page.Path)
//	}
package crawler
