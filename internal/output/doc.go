// Package output writes crawled pages to their destinations.
//
// Every destination implements Writer, which receives pages one at a time
// as the crawl produces them and finalizes on Close:
//   - JSONWriter: a pretty-printed JSON array of {path, text} objects
//   - FilesWriter: one file per page below a directory
//   - SQLiteWriter: a run in the SQLite archive
//   - SummaryWriter: a Markdown table of the crawled pages
//
// MultiWriter fans pages out to several writers. NewTargetWriter chooses
// between JSON and per-page files from the CLI's output path.
package output
