package config

import (
	"fmt"
	"maps"
	"net/textproto"
	"regexp"
	"slices"

	"github.com/nao1215/ragcrawler/internal/crawler"
)

// Overrides is a partial set of crawl options. Nil pointers, a nil Exclude
// and empty Headers leave the underlying value untouched.
type Overrides struct {
	// MaxConnections overrides the per-round concurrency.
	MaxConnections *int `yaml:"maxConnections,omitempty"`

	// Exclude replaces the exclusion rules when set; an empty list clears them.
	Exclude []string `yaml:"exclude,omitempty"`

	// Extract overrides the content selector.
	Extract *string `yaml:"extract,omitempty"`

	// ToMarkdown overrides Markdown conversion.
	ToMarkdown *bool `yaml:"toMarkdown,omitempty"`

	// BreakOnError overrides whether a failed fetch aborts the crawl.
	BreakOnError *bool `yaml:"breakOnError,omitempty"`

	// LogEnabled overrides progress logging.
	LogEnabled *bool `yaml:"logEnabled,omitempty"`

	// Headers are merged into the request headers key by key.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Apply writes every set field of o onto opts.
func (o Overrides) Apply(opts *crawler.Options) {
	if o.MaxConnections != nil {
		opts.MaxConnections = *o.MaxConnections
	}
	if o.Exclude != nil {
		opts.Exclude = slices.Clone(o.Exclude)
	}
	if o.Extract != nil {
		opts.Extract = *o.Extract
	}
	if o.ToMarkdown != nil {
		opts.ToMarkdown = *o.ToMarkdown
	}
	if o.BreakOnError != nil {
		opts.BreakOnError = *o.BreakOnError
	}
	if o.LogEnabled != nil {
		opts.LogEnabled = *o.LogEnabled
	}
	if len(o.Headers) > 0 {
		if opts.Fetch.Headers == nil {
			opts.Fetch.Headers = make(map[string]string, len(o.Headers))
		}
		for k, v := range o.Headers {
			opts.Fetch.Headers[textproto.CanonicalMIMEHeaderKey(k)] = v
		}
	}
}

// Preset bundles crawl options for start URLs matching a pattern.
type Preset struct {
	// Name identifies the preset in logs and listings.
	Name string `yaml:"name"`

	// Test is a regular expression searched for in the start URL.
	Test string `yaml:"test"`

	// Options are applied when the preset matches.
	Options Overrides `yaml:"options"`
}

// BuiltinPresets returns the presets shipped with ragcrawler.
func BuiltinPresets() []Preset {
	wikiBody := "#wiki-body"
	return []Preset{
		{
			Name: "github-repo",
			Test: `github.com/([^/]+)/([^/]+)/tree/([^/]+)`,
			Options: Overrides{
				Exclude: []string{"changelog", "changes", "license"},
			},
		},
		{
			Name: "github-wiki",
			Test: `github.com/([^/]+)/([^/]+)/wiki`,
			Options: Overrides{
				Exclude: []string{"_history"},
				Extract: &wikiBody,
			},
		},
	}
}

func (p Preset) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPreset)
	}
	if _, err := regexp.Compile(p.Test); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPreset, p.Name, err)
	}
	return nil
}

// Matches reports whether the preset applies to startURL.
func (p Preset) Matches(startURL string) (bool, error) {
	re, err := regexp.Compile(p.Test)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrInvalidPreset, p.Name, err)
	}
	return re.MatchString(startURL), nil
}

// MatchPreset returns the first preset whose test matches startURL, or nil
// when none does.
func MatchPreset(presets []Preset, startURL string) (*Preset, error) {
	for i := range presets {
		ok, err := presets[i].Matches(startURL)
		if err != nil {
			return nil, err
		}
		if ok {
			return &presets[i], nil
		}
	}
	return nil, nil
}

// ResolveOptions builds the crawl options for startURL.
//
// Values are layered in three tiers: base supplies the defaults, the first
// matching preset overrides them, and caller overrides win over both. Header
// maps are merged so a preset only fills keys the caller did not set.
// The matched preset is returned for reporting and may be nil.
func ResolveOptions(base crawler.Options, presets []Preset, startURL string, caller Overrides) (crawler.Options, *Preset, error) {
	opts := base
	opts.Exclude = slices.Clone(base.Exclude)
	opts.Fetch.Headers = maps.Clone(base.Fetch.Headers)

	preset, err := MatchPreset(presets, startURL)
	if err != nil {
		return crawler.Options{}, nil, err
	}
	if preset != nil {
		preset.Options.Apply(&opts)
	}
	caller.Apply(&opts)

	if err := opts.Validate(); err != nil {
		return crawler.Options{}, nil, err
	}
	return opts, preset, nil
}
