// Package options configures the evmod engine.
package options

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-evmod/execution/script/loader"
	"github.com/robbyt/go-evmod/execution/tables"
)

// Config holds all configuration for creating an engine
type Config struct {
	// Log handler shared by every component of the engine
	handler slog.Handler
	// Operator, variable and method tables
	tables *tables.Tables
	// Check every name used by a modifier against the tables when compiling
	strict bool
	// Base URL for relative script imports
	baseURL string
	// Options for imports over http and https
	httpOptions *loader.HTTPOptions
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogHandler sets the log handler for the engine
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.handler = handler
		return nil
	}
}

// WithTables sets the tables. They are used as given, so callers keep the
// ability to add or remove entries after the engine is created.
func WithTables(t *tables.Tables) Option {
	return func(c *Config) error {
		if t == nil {
			return fmt.Errorf("tables cannot be nil")
		}
		c.tables = t
		return nil
	}
}

// WithStrict makes compilation fail for modifiers naming unknown operators,
// variables or methods, instead of failing at evaluation time.
func WithStrict(strict bool) Option {
	return func(c *Config) error {
		c.strict = strict
		return nil
	}
}

// WithBaseURL sets the URL that relative imports resolve against: an
// absolute directory path or a file, http or https URL ending in a slash.
func WithBaseURL(base string) Option {
	return func(c *Config) error {
		if _, err := loader.ParseLocation(base); err != nil {
			return err
		}
		c.baseURL = base
		return nil
	}
}

// WithHTTPOptions sets the options used when importing over http and https.
func WithHTTPOptions(o *loader.HTTPOptions) Option {
	return func(c *Config) error {
		if o == nil {
			return fmt.Errorf("HTTP options cannot be nil")
		}
		c.httpOptions = o
		return nil
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.handler == nil {
		return fmt.Errorf("no log handler specified")
	}
	if c.tables == nil {
		return fmt.Errorf("no tables specified")
	}
	if c.httpOptions == nil {
		return fmt.Errorf("no HTTP options specified")
	}
	return nil
}

// GetHandler returns the configured log handler
func (c *Config) GetHandler() slog.Handler {
	return c.handler
}

// GetTables returns the configured tables
func (c *Config) GetTables() *tables.Tables {
	return c.tables
}

// IsStrict reports whether compilation checks names against the tables
func (c *Config) IsStrict() bool {
	return c.strict
}

// GetBaseURL returns the base URL for relative imports
func (c *Config) GetBaseURL() string {
	return c.baseURL
}

// GetHTTPOptions returns the options for http and https imports
func (c *Config) GetHTTPOptions() *loader.HTTPOptions {
	return c.httpOptions
}
