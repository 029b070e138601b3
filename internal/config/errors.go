package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and the loaders, and allow
// callers to use errors.Is() for programmatic handling.
var (
	// ErrNoTarget is returned when no start URL is given.
	ErrNoTarget = errors.New("no target specified: provide a start URL")

	// ErrInvalidMaxConnections is returned when max connections is below 1.
	ErrInvalidMaxConnections = errors.New("invalid max connections: must be at least 1")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxRedirects is returned when max redirects is negative.
	ErrInvalidMaxRedirects = errors.New("invalid max redirects: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidPreset is returned when a preset has no name or its test
	// pattern is not a valid regular expression.
	ErrInvalidPreset = errors.New("invalid preset")
)
