package binding

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-evmod/machines/modifier/compiler"
	"github.com/robbyt/go-evmod/machines/modifier/evaluator"
)

// FunctionalOption configures a Binder.
type FunctionalOption func(*Binder) error

// WithCompiler sets the compiler used for Modifier specs.
func WithCompiler(c *compiler.Compiler) FunctionalOption {
	return func(b *Binder) error {
		if c == nil {
			return fmt.Errorf("compiler cannot be nil")
		}
		b.compiler = c
		return nil
	}
}

// WithEvaluator sets the evaluator that filters events of bindings with modifiers.
func WithEvaluator(e *evaluator.Evaluator) FunctionalOption {
	return func(b *Binder) error {
		if e == nil {
			return fmt.Errorf("evaluator cannot be nil")
		}
		b.evaluator = e
		return nil
	}
}

func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(b *Binder) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		b.logHandler = handler
		b.logger = nil
		return nil
	}
}

func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(b *Binder) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		b.logger = logger
		b.logHandler = nil
		return nil
	}
}

// applyDefaults creates a compiler and an evaluator sharing the binder's
// log handler when none were given.
func (b *Binder) applyDefaults() error {
	b.logHandler, b.logger = b.setupLogger()

	if b.compiler == nil {
		c, err := compiler.NewCompiler(compiler.WithLogHandler(b.logHandler))
		if err != nil {
			return err
		}
		b.compiler = c
	}
	if b.evaluator == nil {
		e, err := evaluator.NewEvaluator(evaluator.WithLogHandler(b.logHandler))
		if err != nil {
			return err
		}
		b.evaluator = e
	}
	return nil
}
