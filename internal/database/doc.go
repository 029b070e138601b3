// Package database provides the SQLite archive for ragcrawler.
//
// A PageDB stores crawl runs and the pages each run produced:
//   - crawl_runs: one row per crawl with its start URL, matched preset,
//     source kind, timestamps and page count
//   - pages: the text of every emitted page with its BLAKE2b content hash
//
// Runs are identified by UUIDs. Two runs of the same site can be diffed by
// content hash to find pages that were added, removed or changed.
//
// The archive is written by the CLI's --db/--save output and read by the
// runs command. It is never consulted to resume or skip a crawl.
//
// SQLite access goes through modernc.org/sqlite, a CGO-free driver.
package database
