package types

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/robbyt/go-evmod/execution/data"
)

var (
	// ErrNoVariables is returned when a module exports nothing usable as a variable.
	ErrNoVariables = errors.New("module exports no variables")

	// ErrNotExported is returned when resolving a name the module does not export.
	ErrNotExported = errors.New("variable is not exported by module")
)

// Module is a compiled script whose exported functions compute variable values.
// Each function receives the properties of the event being tested and returns
// the operand value. Implementations are safe for concurrent use.
type Module interface {
	// Name identifies the module, usually the URL it was loaded from.
	Name() string

	// Machine reports which script machine runs the module.
	Machine() Type

	// Variables returns the exported variable names in sorted order.
	Variables() []string

	// Resolve calls the function backing variable with ev.
	Resolve(ctx context.Context, variable string, ev data.Event) (any, error)

	// Close releases the resources held by the module.
	Close(ctx context.Context) error
}

// Config is the configuration shared by every machine's module constructor.
type Config struct {
	Entrypoints []string
	LogHandler  slog.Handler
	Logger      *slog.Logger
}

// Option configures a module.
type Option func(*Config) error

// WithEntrypoints limits the exported variables to names. Without it every
// public top-level function of the module is exported.
func WithEntrypoints(names ...string) Option {
	return func(c *Config) error {
		for _, n := range names {
			if n == "" {
				return fmt.Errorf("entrypoint name cannot be empty")
			}
		}
		c.Entrypoints = slices.Clone(names)
		return nil
	}
}

// WithLogHandler sets the log handler for the module.
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.LogHandler = handler
		c.Logger = nil
		return nil
	}
}

// WithLogger sets a specific logger for the module.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.Logger = logger
		c.LogHandler = nil
		return nil
	}
}

// NewConfig applies opts to an empty Config.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying module option: %w", err)
		}
	}
	return cfg, nil
}

// Exports reports whether a function called name should become a variable.
// With explicit entrypoints only those names are exported; otherwise any name
// not starting with an underscore is.
func (c *Config) Exports(name string) bool {
	if len(c.Entrypoints) > 0 {
		return slices.Contains(c.Entrypoints, name)
	}
	return name != "" && !strings.HasPrefix(name, "_")
}

// MissingEntrypoints returns the configured entrypoints absent from found.
func (c *Config) MissingEntrypoints(found []string) []string {
	var missing []string
	for _, name := range c.Entrypoints {
		if !slices.Contains(found, name) {
			missing = append(missing, name)
		}
	}
	return missing
}
