package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/ragcrawler/internal/crawler"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "ragcrawler"

	// DefaultDBFile is the archive file name inside the XDG data directory.
	DefaultDBFile = "ragcrawler.db"
)

// Config holds all configuration options for a ragcrawler run.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
//
// Crawl-shaping settings that presets can also provide live in Crawl as
// pointer fields, so an unset flag is distinguishable from an explicit one.
// Transport settings are plain values because presets never touch them.
type Config struct {
	// StartURL is the page the crawl starts from. Required.
	StartURL string

	// OutPath is where pages are written. Empty means stdout.
	OutPath string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the default locations are searched; see FindConfigFile.
	ConfigFilePath string

	// Crawl holds crawl options the caller set explicitly.
	Crawl Overrides

	// ProxyURL routes requests through an http, https or socks5 proxy.
	ProxyURL string

	// MaxRedirects is the number of redirects a request may follow.
	MaxRedirects int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize limits the bytes read from a response body.
	// Zero uses the crawler default.
	MaxBodySize int64

	// GitHubToken authenticates repository tree listings.
	GitHubToken string

	// DBPath is the SQLite archive path. Empty disables the archive unless
	// SaveToDB is set.
	DBPath string

	// SaveToDB archives the crawl in the XDG data directory when DBPath is
	// empty.
	SaveToDB bool

	// SummaryPath is where a Markdown summary of the crawl is written.
	SummaryPath string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches the log handler to JSON.
	LogJSON bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxRedirects: crawler.DefaultMaxRedirects,
		Timeout:      crawler.DefaultTimeout,
		UserAgent:    crawler.DefaultUserAgent,
		MaxBodySize:  crawler.DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for ragcrawler.
// On Linux: ~/.local/share/ragcrawler
// On macOS: ~/Library/Application Support/ragcrawler
// On Windows: %LOCALAPPDATA%\ragcrawler
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ragcrawler.
// On Linux: ~/.config/ragcrawler
// On macOS: ~/Library/Application Support/ragcrawler
// On Windows: %APPDATA%\ragcrawler
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabasePath returns the archive location: DBPath when set, the XDG data
// directory when SaveToDB is set, and "" when archiving is disabled.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	if c.SaveToDB {
		return filepath.Join(XDGDataDir(), DefaultDBFile)
	}
	return ""
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return ErrNoTarget
	}

	if c.Crawl.MaxConnections != nil && *c.Crawl.MaxConnections < 1 {
		return ErrInvalidMaxConnections
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxRedirects < 0 {
		return ErrInvalidMaxRedirects
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}

// FetchOptions converts the transport settings into crawler fetch options.
func (c *Config) FetchOptions() crawler.FetchOptions {
	headers := map[string]string{}
	if c.UserAgent != "" {
		headers["User-Agent"] = c.UserAgent
	}
	return crawler.FetchOptions{
		Headers:      headers,
		ProxyURL:     c.ProxyURL,
		MaxRedirects: c.MaxRedirects,
		Timeout:      c.Timeout,
		MaxBodySize:  c.MaxBodySize,
	}
}
