package crawler

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// extensionRegex matches a trailing file extension such as ".md" or ".html".
var extensionRegex = regexp.MustCompile(`\.[^./]+$`)

// indexFileRegex matches a trailing directory index document.
var indexFileRegex = regexp.MustCompile(`/index\.html?$`)

// ShouldExclude reports whether the exclusion rule matches the final path
// segment of link. Comparison is case-insensitive.
//
// Only the last segment is considered; intermediate segments never match, so
// the rule "tree" does not exclude "/tree/foo/page".
//
//   - A rule with an extension ("license.md") must equal the segment exactly.
//   - A rule without one ("changelog") is compared against the segment with
//     its extension removed, matching both "changelog" and "changelog.md".
func ShouldExclude(rule, link string) bool {
	fold := cases.Fold()

	name := lastSegment(link)
	name = fold.String(name)
	rule = fold.String(rule)

	if extensionRegex.MatchString(rule) {
		return rule == name
	}
	return rule == extensionRegex.ReplaceAllString(name, "")
}

// Excluded reports whether any of the rules matches link.
func Excluded(rules []string, link string) bool {
	for _, rule := range rules {
		if ShouldExclude(rule, link) {
			return true
		}
	}
	return false
}

// lastSegment returns the text after the final "/" once a single trailing
// "/" has been removed.
func lastSegment(link string) string {
	link = strings.TrimSuffix(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}

// FrontierKey returns the equivalence form of a frontier path. Two paths are
// the same frontier entry when their keys are equal: a trailing
// "/index.html" or "/index.htm" is collapsed to "/".
func FrontierKey(path string) string {
	return indexFileRegex.ReplaceAllString(path, "/")
}

// Frontier is the ordered, append-only list of paths discovered during a
// crawl. It is owned by a single goroutine and is not safe for concurrent
// use.
type Frontier struct {
	paths []string
	seen  map[string]struct{}
}

// NewFrontier creates a Frontier holding the given seed paths, skipping
// equivalent duplicates.
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{
		paths: make([]string, 0, len(seeds)),
		seen:  make(map[string]struct{}, len(seeds)),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	return f
}

// Add appends path unless an equivalent entry is already present.
// It returns true when the path was appended.
func (f *Frontier) Add(path string) bool {
	key := FrontierKey(path)
	if _, ok := f.seen[key]; ok {
		return false
	}
	f.seen[key] = struct{}{}
	f.paths = append(f.paths, path)
	return true
}

// Contains reports whether an equivalent entry is present.
func (f *Frontier) Contains(path string) bool {
	_, ok := f.seen[FrontierKey(path)]
	return ok
}

// Len returns the number of entries.
func (f *Frontier) Len() int {
	return len(f.paths)
}

// Batch returns up to size entries starting at cursor.
// The returned slice is a copy.
func (f *Frontier) Batch(cursor, size int) []string {
	if cursor >= len(f.paths) {
		return nil
	}
	end := min(cursor+size, len(f.paths))
	batch := make([]string, end-cursor)
	copy(batch, f.paths[cursor:end])
	return batch
}

// Paths returns a copy of all entries in insertion order.
func (f *Frontier) Paths() []string {
	out := make([]string, len(f.paths))
	copy(out, f.paths)
	return out
}
