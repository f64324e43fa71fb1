package evaluator

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/robbyt/go-evmod/execution/tables"
)

// FunctionalOption is a function that configures an Evaluator instance
type FunctionalOption func(*Evaluator) error

// WithTables sets the operator, variable and method tables consulted during
// evaluation. The evaluator keeps a reference, so later changes to t are seen
// by subsequent evaluations.
func WithTables(t *tables.Tables) FunctionalOption {
	return func(e *Evaluator) error {
		if t == nil {
			return fmt.Errorf("tables cannot be nil")
		}
		e.tables = t
		return nil
	}
}

// WithLogHandler creates an option to set the log handler for the evaluator.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(e *Evaluator) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		e.logHandler = handler
		e.logger = nil
		return nil
	}
}

// WithLogger creates an option to set a specific logger for the evaluator.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(e *Evaluator) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		e.logger = logger
		e.logHandler = nil
		return nil
	}
}

func (e *Evaluator) validate() error {
	if e.logHandler == nil && e.logger == nil {
		return fmt.Errorf("either log handler or logger must be specified")
	}
	if e.tables == nil {
		return fmt.Errorf("tables must be specified")
	}
	return nil
}

func (e *Evaluator) applyDefaults() {
	if e.logHandler == nil && e.logger == nil {
		e.logHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	if e.tables == nil {
		e.tables = tables.New()
	}
}
