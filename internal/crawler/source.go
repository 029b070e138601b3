package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// githubTreeRegex matches GitHub web URLs that point at a directory of a
// repository at a given ref.
var githubTreeRegex = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/tree/([^/]+)(?:/(.*))?$`)

// rawContentBase is where raw repository files are served from.
const rawContentBase = "https://raw.githubusercontent.com"

// docExtension selects the repository files crawled in repository mode.
const docExtension = ".md"

// SourceKind selects how the frontier is seeded.
type SourceKind int

const (
	// SourceGenericSite starts from one page and follows hyperlinks.
	SourceGenericSite SourceKind = iota

	// SourceRepoTree enumerates documentation files from a GitHub
	// repository tree and fetches their raw content. No links are followed.
	SourceRepoTree
)

// String returns a human-readable name for the kind.
func (k SourceKind) String() string {
	switch k {
	case SourceGenericSite:
		return "site"
	case SourceRepoTree:
		return "github-tree"
	default:
		return "unknown"
	}
}

// RepoRef identifies a directory inside a GitHub repository.
type RepoRef struct {
	Owner   string
	Repo    string
	Ref     string
	Subpath string
}

// RawURL returns the raw-content URL of a file in the repository.
func (r RepoRef) RawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", rawContentBase, r.Owner, r.Repo, r.Ref, path)
}

// Source is the resolved path source of a crawl. It is computed once and
// shared read-only by the engine and every fetch.
type Source struct {
	// Kind is the seeding strategy.
	Kind SourceKind

	// Start is the parsed starting URL.
	Start *url.URL

	// Boundary is the normalized starting URL. Discovered links must have
	// it as a string prefix to stay in scope.
	Boundary string

	// boundaryURL is Boundary parsed, used to resolve frontier paths.
	boundaryURL *url.URL

	// Repo is set in repository mode.
	Repo RepoRef

	// Seeds are the initial frontier entries.
	Seeds []string
}

// Resolve returns the absolute URL of a frontier path.
func (s *Source) Resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	return s.boundaryURL.ResolveReference(ref), nil
}

// ParseStartURL parses and validates a starting URL.
func ParseStartURL(startURL string) (*url.URL, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStartURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q has no http(s) scheme", ErrInvalidStartURL, startURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidStartURL, startURL)
	}
	return u, nil
}

// NormalizeBoundary strips the query and fragment from u, lower-cases its
// host and truncates its path after the last "/".
func NormalizeBoundary(u *url.URL) *url.URL {
	b := *u
	b.Host = strings.ToLower(b.Host)
	b.RawQuery = ""
	b.ForceQuery = false
	b.Fragment = ""
	b.RawFragment = ""

	p := b.Path
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[:i+1]
	} else {
		p = "/"
	}
	b.Path = p
	b.RawPath = ""
	return &b
}

// ParseRepoRef extracts the repository coordinates from a GitHub tree URL.
// The second return value is false when u is not a GitHub tree URL.
func ParseRepoRef(u *url.URL) (RepoRef, bool) {
	clean := *u
	clean.RawQuery = ""
	clean.Fragment = ""
	m := githubTreeRegex.FindStringSubmatch(clean.String())
	if m == nil {
		return RepoRef{}, false
	}
	return RepoRef{
		Owner:   m[1],
		Repo:    m[2],
		Ref:     m[3],
		Subpath: m[4],
	}, true
}

// ResolveSource decides how the crawl starting at startURL is seeded.
//
// GitHub tree URLs select repository mode: lister enumerates the tree and
// every Markdown file below the subpath becomes a frontier entry. A lister
// failure, a nil lister, or an empty result yields an empty frontier rather
// than an error. Any other URL selects generic mode with the start path as
// the only seed.
func ResolveSource(ctx context.Context, startURL string, lister RepoLister, logger *slog.Logger) (*Source, error) {
	start, err := ParseStartURL(startURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	boundary := NormalizeBoundary(start)
	src := &Source{
		Kind:        SourceGenericSite,
		Start:       start,
		Boundary:    boundary.String(),
		boundaryURL: boundary,
	}

	if ref, ok := ParseRepoRef(start); ok {
		src.Kind = SourceRepoTree
		src.Repo = ref
		src.Seeds = repoSeeds(ctx, ref, lister, logger)
		return src, nil
	}

	seed := start.EscapedPath()
	if seed == "" {
		seed = "/"
	}
	src.Seeds = []string{seed}
	return src, nil
}

// repoSeeds lists the repository tree and maps matching files to raw URLs.
func repoSeeds(ctx context.Context, ref RepoRef, lister RepoLister, logger *slog.Logger) []string {
	if lister == nil {
		logger.Warn("no repository lister configured, nothing to crawl",
			"owner", ref.Owner, "repo", ref.Repo)
		return []string{}
	}

	entries, err := lister.ListFiles(ctx, ref.Owner, ref.Repo, ref.Ref)
	if err != nil {
		logger.Warn("failed to list repository tree",
			"owner", ref.Owner,
			"repo", ref.Repo,
			"ref", ref.Ref,
			"error", err,
		)
		return []string{}
	}

	seeds := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsFile() {
			continue
		}
		if !strings.HasSuffix(e.Path, docExtension) || !strings.HasPrefix(e.Path, ref.Subpath) {
			continue
		}
		seeds = append(seeds, ref.RawURL(e.Path))
	}

	if len(seeds) == 0 {
		logger.Warn("no documentation files found in repository tree",
			"owner", ref.Owner,
			"repo", ref.Repo,
			"ref", ref.Ref,
			"subpath", ref.Subpath,
		)
	}
	return seeds
}
