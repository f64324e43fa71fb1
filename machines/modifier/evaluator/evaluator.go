// Package evaluator runs compiled descriptors against live events: it decides
// whether an event passes a descriptor's tests, and invokes the descriptor's
// methods when it does.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/execution/descriptor"
	"github.com/robbyt/go-evmod/execution/tables"
	"github.com/robbyt/go-evmod/internal/helpers"
)

// Evaluator applies descriptors to events using a set of tables. Every table
// entry is looked up when it is needed, so an evaluation that fails on a
// missing entry succeeds once the entry is registered.
type Evaluator struct {
	tables     *tables.Tables
	logHandler slog.Handler
	logger     *slog.Logger
}

// NewEvaluator creates an Evaluator. Without WithTables it uses tables.New().
func NewEvaluator(opts ...FunctionalOption) (*Evaluator, error) {
	e := &Evaluator{}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("error applying evaluator option: %w", err)
		}
	}
	e.applyDefaults()

	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluator configuration: %w", err)
	}

	e.logHandler, e.logger = helpers.LoggerOrDefault(e.logger, e.logHandler, "modifier", "Evaluator")
	return e, nil
}

func (e *Evaluator) String() string {
	return "modifier.Evaluator"
}

// Tables returns the tables the evaluator consults.
func (e *Evaluator) Tables() *tables.Tables {
	return e.tables
}

// Evaluate reports whether ev passes every test. Tests run in order and
// evaluation stops at the first failing test, so no operand of a later test
// is resolved. An empty test list passes.
func (e *Evaluator) Evaluate(ctx context.Context, tests []descriptor.Test, ev data.Event) (bool, error) {
	if ev == nil {
		return false, ErrNilEvent
	}
	for _, t := range tests {
		ok, err := e.evaluateTest(ctx, t, ev)
		if err != nil {
			return false, fmt.Errorf("test [%s]: %w", t, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) evaluateTest(ctx context.Context, t descriptor.Test, ev data.Event) (bool, error) {
	left, _ := ev.Property(t.Property)

	var result bool
	switch {
	case !t.HasOperator():
		if !t.Operand.IsZero() {
			return false, fmt.Errorf("%w: operand without an operator", ErrInvalidTest)
		}
		result = data.Truthy(left)
	case t.Operand.IsZero():
		return false, fmt.Errorf("%w: operator %q without an operand", ErrInvalidTest, t.Operator)
	default:
		op, err := e.tables.Operators.Lookup(t.Operator)
		if err != nil {
			return false, err
		}
		right, err := e.resolveOperand(ctx, t.Operand, ev)
		if err != nil {
			return false, err
		}
		result = op(left, right)
	}

	if t.Negate {
		result = !result
	}
	return result, nil
}

// resolveOperand returns the literal value of the operand, or calls the
// variable resolver it names.
func (e *Evaluator) resolveOperand(ctx context.Context, o descriptor.Operand, ev data.Event) (any, error) {
	if v, ok := o.Literal(); ok {
		return v, nil
	}
	resolve, err := e.tables.Variables.Lookup(o.Text)
	if err != nil {
		return nil, err
	}
	v, err := resolve(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrVariableFailed, o.Text, err)
	}
	return v, nil
}

// ApplyMethods invokes the named methods on ev in order. Every name is looked
// up before any method runs, so an unknown name leaves the event untouched.
func (e *Evaluator) ApplyMethods(ctx context.Context, names []string, ev data.Event) error {
	if ev == nil {
		return ErrNilEvent
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	methods := make([]tables.MethodFunc, 0, len(names))
	for _, name := range names {
		fn, err := e.tables.Methods.Lookup(name)
		if err != nil {
			return err
		}
		methods = append(methods, fn)
	}
	for _, fn := range methods {
		fn(ev)
	}
	return nil
}

// Wrap returns a handler that runs next only for events passing the tests of
// d, after applying the methods of d. Events that fail a test are left
// untouched. Evaluation errors are returned from the handler and are not
// remembered, so the next event is evaluated afresh.
func (e *Evaluator) Wrap(d *descriptor.Descriptor, next data.Handler) data.Handler {
	logger := e.logger.WithGroup("handler").With("event", d.EventName)

	return func(ctx context.Context, ev data.Event) error {
		ok, err := e.Evaluate(ctx, d.Tests, ev)
		if err != nil {
			logger.Warn("event evaluation failed", "descriptor", d.String(), "error", err)
			return err
		}
		if !ok {
			return nil
		}
		if err := e.ApplyMethods(ctx, d.MethodNames, ev); err != nil {
			logger.Warn("applying methods failed", "descriptor", d.String(), "error", err)
			return err
		}
		if next == nil {
			return nil
		}
		return next(ctx, ev)
	}
}
