package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
)

// Tree entry types reported by the Git trees API.
const (
	EntryTypeBlob = "blob"
	EntryTypeTree = "tree"
)

// RepoEntry is one entry of a repository tree listing.
type RepoEntry struct {
	// Path is relative to the repository root.
	Path string

	// Type is EntryTypeBlob for files and EntryTypeTree for directories.
	Type string
}

// IsFile reports whether the entry is a regular file.
func (e RepoEntry) IsFile() bool {
	return e.Type == EntryTypeBlob
}

// RepoLister enumerates every entry of a repository tree at a ref.
type RepoLister interface {
	ListFiles(ctx context.Context, owner, repo, ref string) ([]RepoEntry, error)
}

// GitHubLister lists repository trees through the GitHub REST API.
// Calls are unauthenticated unless a token is configured and are subject to
// GitHub's rate limits; nothing is retried.
type GitHubLister struct {
	client *github.Client
	logger *slog.Logger
}

// GitHubOption configures a GitHubLister.
type GitHubOption func(*GitHubLister) error

// WithGitHubToken authenticates API calls with a personal access token.
func WithGitHubToken(token string) GitHubOption {
	return func(g *GitHubLister) error {
		if token != "" {
			g.client = g.client.WithAuthToken(token)
		}
		return nil
	}
}

// WithGitHubLogger sets the logger for listing warnings.
func WithGitHubLogger(logger *slog.Logger) GitHubOption {
	return func(g *GitHubLister) error {
		if logger != nil {
			g.logger = logger
		}
		return nil
	}
}

// WithGitHubBaseURL points the lister at a different API endpoint, such as
// a GitHub Enterprise server or a test server.
func WithGitHubBaseURL(baseURL string) GitHubOption {
	return func(g *GitHubLister) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		g.client.BaseURL = u
		return nil
	}
}

// NewGitHubLister creates a lister using httpClient for API requests.
// A nil httpClient uses http.DefaultClient.
func NewGitHubLister(httpClient *http.Client, opts ...GitHubOption) (*GitHubLister, error) {
	g := &GitHubLister{
		client: github.NewClient(httpClient),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ListFiles returns the recursive tree of owner/repo at ref.
func (g *GitHubLister) ListFiles(ctx context.Context, owner, repo, ref string) ([]RepoEntry, error) {
	tree, _, err := g.client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree %s/%s@%s: %w", owner, repo, ref, err)
	}

	// GitHub caps recursive listings; the entries received are still used.
	if tree.GetTruncated() {
		g.logger.Warn("repository tree listing is truncated, some files will not be crawled",
			"owner", owner,
			"repo", repo,
			"ref", ref,
			"entries", len(tree.Entries),
		)
	}

	entries := make([]RepoEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, RepoEntry{
			Path: e.GetPath(),
			Type: e.GetType(),
		})
	}
	return entries, nil
}
