package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for ragcrawler.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragcrawler",
		Short: "Crawl documentation sites into text for RAG pipelines",
		Long: `ragcrawler crawls every page of a documentation site that lives below the
start URL and emits the extracted text, converted to Markdown by default.

GitHub tree URLs (https://github.com/<owner>/<repo>/tree/<ref>/<path>) are
crawled by listing the repository and fetching every Markdown file below
<path> instead of following links.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewPresetsCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
