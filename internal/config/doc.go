// Package config provides configuration structures and utilities for
// ragcrawler. It holds the CLI settings, loads the YAML configuration file,
// and resolves crawl options from defaults, presets and explicit flags.
package config
