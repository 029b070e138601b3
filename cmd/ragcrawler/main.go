// Package main provides the entry point for the ragcrawler CLI.
//
// ragcrawler crawls a documentation site, or the Markdown files of a GitHub
// repository tree, and emits the text of every page it reaches for use in
// retrieval-augmented generation pipelines.
//
// Usage:
//
//	ragcrawler crawl <start-url> [out-path]
//	ragcrawler runs [run-id]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
