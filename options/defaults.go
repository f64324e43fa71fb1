package options

import (
	"log/slog"
	"os"

	"github.com/robbyt/go-evmod/execution/script/loader"
	"github.com/robbyt/go-evmod/execution/tables"
)

// DefaultConfig initializes a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		handler:     DefaultHandler(),
		tables:      tables.New(),
		httpOptions: loader.DefaultHTTPOptions(),
	}
}

// DefaultHandler returns the default logging handler
func DefaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stderr, nil)
}

// WithDefaults applies default values to any config properties that are nil
func WithDefaults() Option {
	return func(c *Config) error {
		if c.handler == nil {
			c.handler = DefaultHandler()
		}
		if c.tables == nil {
			c.tables = tables.New()
		}
		if c.httpOptions == nil {
			c.httpOptions = loader.DefaultHTTPOptions()
		}
		return nil
	}
}
