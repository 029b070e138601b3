package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nao1215/ragcrawler/internal/config"
	"github.com/nao1215/ragcrawler/internal/crawler"
	ragLog "github.com/nao1215/ragcrawler/internal/log"
	"github.com/nao1215/ragcrawler/internal/output"
)

// dotEnvFile is loaded from the working directory when present.
const dotEnvFile = ".env"

// Environment variables consulted when the matching flag is not given.
const (
	envHTTPSProxy  = "HTTPS_PROXY"
	envGitHubToken = "GITHUB_TOKEN"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start-url> [out-path]",
		Short: "Crawl a documentation site and emit the text of every page",
		Long: `Crawl fetches the start URL, follows every link that stays below it, and
emits the text of each page.

Without out-path, pages are printed to stdout as a JSON array and logging is
disabled. An out-path ending in .json (or naming an existing file) receives the
JSON array; any other out-path is treated as a directory that receives one
file per page, mirroring the URL path.

Examples:
  # Print every page below /docs/ as JSON
  ragcrawler crawl https://example.com/docs/

  # Write one Markdown file per page
  ragcrawler crawl https://example.com/docs/ ./docs-md

  # Keep only the article body and skip changelog pages
  ragcrawler crawl --extract "main article" -e changelog https://example.com/docs/ pages.json

  # Crawl the Markdown files of a GitHub repository directory
  ragcrawler crawl https://github.com/owner/repo/tree/main/docs ./repo-docs

  # Archive the crawl and write a summary
  ragcrawler crawl --save --summary summary.md https://example.com/docs/ ./out`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().String("extract", "",
		"CSS selector of the element whose content becomes the page text")
	cmd.Flags().Int("max-connections", crawler.DefaultMaxConnections,
		"Number of pages fetched concurrently per round")
	cmd.Flags().StringSliceP("exclude", "e", nil,
		"Final path segments to skip, comma separated (case-insensitive); pass \"\" to clear preset rules")
	cmd.Flags().Bool("no-markdown", false,
		"Emit extracted HTML instead of Markdown")
	cmd.Flags().Bool("no-log", false,
		"Disable crawl progress logging")
	cmd.Flags().Bool("continue-on-error", false,
		"Skip pages that fail to load instead of aborting the crawl")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ragcrawler in current or home directory)")

	// Transport flags
	cmd.Flags().String("proxy", "",
		"Proxy URL (http, https or socks5); defaults to $HTTPS_PROXY for https start URLs")
	cmd.Flags().Int("max-redirects", crawler.DefaultMaxRedirects,
		"Maximum redirects followed per request")
	cmd.Flags().DurationP("timeout", "t", crawler.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: a desktop Chrome user agent)")
	cmd.Flags().StringArrayP("header", "H", nil,
		"Extra request header as key=value (repeatable)")
	cmd.Flags().String("github-token", "",
		"GitHub token for repository listings (default: $GITHUB_TOKEN)")
	cmd.Flags().Int64("max-body-size", crawler.DefaultMaxBodySize,
		"Maximum bytes read from a response body")

	// Output flags
	cmd.Flags().String("db", "",
		"Archive the crawl in the SQLite database at this path")
	cmd.Flags().Bool("save", false,
		"Archive the crawl in the default database in the XDG data directory")
	cmd.Flags().String("summary", "",
		"Write a Markdown summary of the crawl to this path")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return err
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// loadDotEnv loads environment variables from path if it exists.
// Variables already present in the environment are not overridden.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil //nolint:nilerr // a missing .env file is fine
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
// Crawl options are only recorded when the flag was given explicitly, so
// presets and the config file can supply them otherwise.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	cfg.StartURL = args[0]
	if len(args) > 1 {
		cfg.OutPath = args[1]
	}
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	if flags.Changed("extract") {
		extract, err := flags.GetString("extract")
		if err != nil {
			return nil, err
		}
		cfg.Crawl.Extract = &extract
	}

	if flags.Changed("max-connections") {
		maxConn, err := flags.GetInt("max-connections")
		if err != nil {
			return nil, err
		}
		cfg.Crawl.MaxConnections = &maxConn
	}

	if flags.Changed("exclude") {
		cfg.Crawl.Exclude, err = flags.GetStringSlice("exclude")
		if err != nil {
			return nil, err
		}
	}

	if flags.Changed("no-markdown") {
		noMarkdown, err := flags.GetBool("no-markdown")
		if err != nil {
			return nil, err
		}
		toMarkdown := !noMarkdown
		cfg.Crawl.ToMarkdown = &toMarkdown
	}

	if flags.Changed("no-log") {
		noLog, err := flags.GetBool("no-log")
		if err != nil {
			return nil, err
		}
		logEnabled := !noLog
		cfg.Crawl.LogEnabled = &logEnabled
	}

	if flags.Changed("continue-on-error") {
		continueOnError, err := flags.GetBool("continue-on-error")
		if err != nil {
			return nil, err
		}
		breakOnError := !continueOnError
		cfg.Crawl.BreakOnError = &breakOnError
	}

	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	cfg.Crawl.Headers, err = parseHeaders(headers)
	if err != nil {
		return nil, err
	}

	if flags.Changed("user-agent") {
		cfg.UserAgent, err = flags.GetString("user-agent")
		if err != nil {
			return nil, err
		}
		if cfg.Crawl.Headers == nil {
			cfg.Crawl.Headers = make(map[string]string, 1)
		}
		cfg.Crawl.Headers["User-Agent"] = cfg.UserAgent
	}

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.ProxyURL, err = flags.GetString("proxy")
	if err != nil {
		return nil, err
	}
	if cfg.ProxyURL == "" && strings.HasPrefix(cfg.StartURL, "https://") {
		cfg.ProxyURL = os.Getenv(envHTTPSProxy)
	}

	cfg.MaxRedirects, err = flags.GetInt("max-redirects")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = flags.GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = flags.GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.GitHubToken, err = flags.GetString("github-token")
	if err != nil {
		return nil, err
	}
	if cfg.GitHubToken == "" {
		cfg.GitHubToken = os.Getenv(envGitHubToken)
	}

	cfg.DBPath, err = flags.GetString("db")
	if err != nil {
		return nil, err
	}

	cfg.SaveToDB, err = flags.GetBool("save")
	if err != nil {
		return nil, err
	}

	cfg.SummaryPath, err = flags.GetString("summary")
	if err != nil {
		return nil, err
	}

	cfg.LogJSON, err = flags.GetBool("log-json")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseHeaders converts key=value pairs into a header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q (expected key=value)", pair)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

// setupLogger creates the logger for a crawl.
// Pages go to stdout when no out path is given, so logging is discarded
// entirely in that case.
func setupLogger(cfg *config.Config, stderr io.Writer) *slog.Logger {
	if cfg.OutPath == "" {
		return ragLog.NewDiscardLogger()
	}
	if cfg.LogJSON {
		return ragLog.NewSecureJSONLogger(stderr, cfg.Verbose)
	}
	return ragLog.NewSecureLogger(stderr, cfg.Verbose)
}

// loadConfigFile finds and loads the configuration file.
// A missing file is only an error when the user named it explicitly.
func loadConfigFile(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return nil, nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return file, nil
}

// resolveCrawlOptions builds the immutable options for the crawl:
// built-in defaults, then the config file defaults, then the first matching
// preset, then explicit flags.
func resolveCrawlOptions(cfg *config.Config, file *config.File) (crawler.Options, *config.Preset, error) {
	base := crawler.DefaultOptions()
	base.Fetch = cfg.FetchOptions()
	if file != nil {
		file.Defaults.Apply(&base)
	}
	return config.ResolveOptions(base, file.AllPresets(), cfg.StartURL, cfg.Crawl)
}

// runCrawl executes the crawl and writes every page to the configured
// outputs.
func runCrawl(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	start, err := crawler.ParseStartURL(cfg.StartURL)
	if err != nil {
		return err
	}

	file, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return err
	}

	opts, preset, err := resolveCrawlOptions(cfg, file)
	if err != nil {
		return fmt.Errorf("failed to resolve crawl options: %w", err)
	}

	transport, err := crawler.NewHTTPTransport(opts.Fetch)
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	lister, err := crawler.NewGitHubLister(transport.Client(),
		crawler.WithGitHubToken(cfg.GitHubToken),
		crawler.WithGitHubLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	info := output.RunInfo{
		StartURL: cfg.StartURL,
		Source:   sourceKind(start).String(),
	}
	if preset != nil {
		info.Preset = preset.Name
		logger.Info("using preset", "preset", preset.Name)
	}

	writer, err := openWriters(ctx, cfg, opts, info, stdout, logger)
	if err != nil {
		return err
	}

	spider := crawler.NewSpider(opts,
		crawler.WithTransport(transport),
		crawler.WithRepoLister(lister),
		crawler.WithLogger(logger),
	)

	startTime := time.Now()
	var crawlErr error
	for page, err := range spider.Crawl(ctx, cfg.StartURL) {
		if err != nil {
			crawlErr = fmt.Errorf("crawl failed: %w", err)
			break
		}
		if err := writer.WritePage(page); err != nil {
			crawlErr = fmt.Errorf("failed to write page %s: %w", page.Path, err)
			break
		}
	}

	// Pages produced before a failure are still flushed.
	closeErr := writer.Close()

	stats := spider.Stats()
	logger.Info("crawl finished",
		"source", stats.Source.String(),
		"rounds", stats.Rounds,
		"visited", stats.PathsVisited,
		"pages", stats.PagesEmitted,
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	return errors.Join(crawlErr, closeErr)
}

// sourceKind reports how a crawl from start will be seeded.
func sourceKind(start *url.URL) crawler.SourceKind {
	if _, ok := crawler.ParseRepoRef(start); ok {
		return crawler.SourceRepoTree
	}
	return crawler.SourceGenericSite
}

// openWriters creates the page destination plus the optional archive and
// summary writers.
func openWriters(ctx context.Context, cfg *config.Config, opts crawler.Options, info output.RunInfo, stdout io.Writer, logger *slog.Logger) (output.Writer, error) {
	target, err := output.NewTargetWriter(stdout, cfg.OutPath, opts.ToMarkdown)
	if err != nil {
		return nil, fmt.Errorf("failed to open output: %w", err)
	}
	writers := []output.Writer{target}

	if dbPath := cfg.DatabasePath(); dbPath != "" {
		archive, err := output.OpenSQLiteWriter(ctx, dbPath, info)
		if err != nil {
			_ = target.Close()
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		logger.Info("archiving crawl", "db", dbPath, "run", archive.RunID())
		writers = append(writers, archive)
	}

	if cfg.SummaryPath != "" {
		summary, err := output.NewSummaryFileWriter(cfg.SummaryPath, info)
		if err != nil {
			_ = output.NewMultiWriter(writers...).Close()
			return nil, err
		}
		writers = append(writers, summary)
	}

	if len(writers) == 1 {
		return target, nil
	}
	return output.NewMultiWriter(writers...), nil
}
