package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the configuration file name searched for in the
	// current and home directories.
	DefaultConfigFile = ".ragcrawler"

	// XDGConfigFile is the configuration file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"
)

// File represents the structure of the ragcrawler configuration file.
//
//	defaults:
//	  maxConnections: 10
//	presets:
//	  - name: my-docs
//	    test: docs\.example\.com
//	    options:
//	      extract: main
type File struct {
	// Defaults are applied to every crawl before any preset.
	Defaults Overrides `yaml:"defaults,omitempty"`

	// Presets are consulted before the built-in presets.
	Presets []Preset `yaml:"presets,omitempty"`
}

// LoadConfigFile loads a configuration file from path.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for _, p := range cf.Presets {
		if err := p.validate(); err != nil {
			return nil, err
		}
	}

	return &cf, nil
}

// AllPresets returns the user presets followed by the built-in presets.
// A nil File yields only the built-ins.
func (cf *File) AllPresets() []Preset {
	builtins := BuiltinPresets()
	if cf == nil {
		return builtins
	}
	presets := make([]Preset, 0, len(cf.Presets)+len(builtins))
	presets = append(presets, cf.Presets...)
	return append(presets, builtins...)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .ragcrawler in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .ragcrawler in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}
