package compiler

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/robbyt/go-evmod/execution/tables"
)

// FunctionalOption is a function that configures a Compiler instance
type FunctionalOption func(*Compiler) error

// WithTables enables strict compilation: every operator, method and variable
// named by a modifier must exist in t when Compile runs. Without tables the
// compiler checks syntax only, and unknown names surface at evaluation time.
func WithTables(t *tables.Tables) FunctionalOption {
	return func(c *Compiler) error {
		if t == nil {
			return fmt.Errorf("tables cannot be nil")
		}
		c.tables = t
		return nil
	}
}

// WithLogHandler creates an option to set the log handler for the compiler.
// This is the preferred option for logging configuration as it provides
// more flexibility through the slog.Handler interface.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(c *Compiler) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		// Clear logger if handler is explicitly set
		c.logger = nil
		return nil
	}
}

// WithLogger creates an option to set a specific logger for the compiler.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(c *Compiler) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		// Clear handler if logger is explicitly set
		c.logHandler = nil
		return nil
	}
}

// validate checks if the compiler configuration is valid
func (c *Compiler) validate() error {
	if c.logHandler == nil && c.logger == nil {
		return fmt.Errorf("either log handler or logger must be specified")
	}
	return nil
}

// applyDefaults sets the default values for a compiler
func (c *Compiler) applyDefaults() {
	if c.logHandler == nil && c.logger == nil {
		c.logHandler = slog.NewTextHandler(os.Stderr, nil)
	}
}
