package evaluator

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/execution/descriptor"
	"github.com/robbyt/go-evmod/execution/tables"
	"github.com/robbyt/go-evmod/machines/modifier/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEvent records every control call in order.
type recordingEvent struct {
	*data.StaticProvider
	dir   string
	calls *[]string
}

func newEvent(props map[string]any) *recordingEvent {
	return &recordingEvent{StaticProvider: data.NewStaticProvider(props), calls: &[]string{}}
}

func (e *recordingEvent) StopPropagation() { *e.calls = append(*e.calls, "stopPropagation") }
func (e *recordingEvent) StopImmediatePropagation() {
	*e.calls = append(*e.calls, "stopImmediatePropagation")
}
func (e *recordingEvent) PreventDefault()   { *e.calls = append(*e.calls, "preventDefault") }
func (e *recordingEvent) Direction() string { return e.dir }

func newTestEvaluator(t *testing.T, tbl *tables.Tables) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(
		WithTables(tbl),
		WithLogHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	)
	require.NoError(t, err)
	return e
}

func mustCompile(t *testing.T, source string) *descriptor.Descriptor {
	t.Helper()
	c, err := compiler.NewCompiler(compiler.WithLogHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	d, err := c.Compile(source)
	require.NoError(t, err)
	return d
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		props  map[string]any
		dir    string
		want   bool
	}{
		{"no tests", "click", nil, "", true},
		{"truthy and falsy", "keydown[altKey][!ctrlKey]", map[string]any{"altKey": true, "ctrlKey": false}, "", true},
		{"second test fails", "click[altKey][ctrlKey]", map[string]any{"altKey": true, "ctrlKey": false}, "", false},
		{"missing property is falsy", "click[shiftKey]", map[string]any{}, "", false},
		{"negated missing property", "click[!shiftKey]", map[string]any{}, "", true},
		{"negated string comparison", `keydown[!code>"KeyM"]`, map[string]any{"code": "KeyA"}, "", true},
		{"string comparison", `keydown[code>"KeyM"]`, map[string]any{"code": "KeyZ"}, "", true},
		{"numeric comparison", "wheel[deltaY>=2]", map[string]any{"deltaY": 2}, "", true},
		{"negative literal", "wheel[deltaY>-1]", map[string]any{"deltaY": -3.0}, "", false},
		{"loose equality", "click[button=0]", map[string]any{"button": 0}, "", true},
		{"word operator", `keyup[code startsWith "Digit"]`, map[string]any{"code": "Digit4"}, "", true},
		{"variable ltr", "keydown[code=ARROW_FORWARD]", map[string]any{"code": "ArrowRight"}, "ltr", true},
		{"variable rtl", "keydown[code=ARROW_FORWARD]", map[string]any{"code": "ArrowRight"}, "rtl", false},
		{"backward variable rtl", "keydown[code=ARROW_BACKWARD]", map[string]any{"code": "ArrowRight"}, "rtl", true},
		{"negation applies after the operator", "keydown[!code=ARROW_FORWARD]", map[string]any{"code": "ArrowLeft"}, "ltr", true},
	}

	e := newTestEvaluator(t, tables.New())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := mustCompile(t, tt.source)
			ev := newEvent(tt.props)
			ev.dir = tt.dir
			got, err := e.Evaluate(context.Background(), d.Tests, ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateNegationRoundTrip(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(t, tables.New())
	ctx := context.Background()
	events := []map[string]any{
		{"code": "KeyA", "altKey": true, "deltaY": 3},
		{"code": "KeyZ", "altKey": false, "deltaY": -1},
		{},
	}
	testCases := []descriptor.Test{
		{Property: "altKey"},
		{Property: "code", Operator: ">", Operand: descriptor.String("KeyM")},
		{Property: "deltaY", Operator: "<=", Operand: descriptor.Number(0)},
		{Property: "code", Operator: "=", Operand: descriptor.Identifier(tables.VariableArrowForward)},
		{Property: "code", Operator: "includes", Operand: descriptor.String("Z")},
	}

	for _, props := range events {
		for _, tc := range testCases {
			ev := newEvent(props)
			plain, err := e.Evaluate(ctx, []descriptor.Test{tc}, ev)
			require.NoError(t, err)
			negated, err := e.Evaluate(ctx, []descriptor.Test{tc.Negated()}, ev)
			require.NoError(t, err)
			assert.Equal(t, plain, !negated, "%s on %v", tc, props)
		}
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	t.Parallel()

	tbl := tables.New()
	calls := 0
	require.NoError(t, tbl.Variables.Set("COUNTED", func(context.Context, data.Event) (any, error) {
		calls++
		return "x", nil
	}))
	e := newTestEvaluator(t, tbl)

	d := mustCompile(t, "click[altKey][key=COUNTED][missing~NOPE]")
	ok, err := e.Evaluate(context.Background(), d.Tests, newEvent(map[string]any{"altKey": false}))
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, calls)

	ok, err = e.Evaluate(context.Background(), d.Tests[:2], newEvent(map[string]any{"altKey": true, "key": "x"}))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, calls)
}

func TestEvaluateVariableResolvedPerTest(t *testing.T) {
	t.Parallel()

	tbl := tables.New()
	calls := 0
	require.NoError(t, tbl.Variables.Set("N", func(context.Context, data.Event) (any, error) {
		calls++
		return 1, nil
	}))
	e := newTestEvaluator(t, tbl)

	d := mustCompile(t, "click[a=N][b=N]")
	ev := newEvent(map[string]any{"a": 1, "b": "1"})
	for range 2 {
		ok, err := e.Evaluate(context.Background(), d.Tests, ev)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, 4, calls)
}

func TestEvaluateUnknownVariable(t *testing.T) {
	t.Parallel()

	tbl := tables.New()
	e := newTestEvaluator(t, tbl)
	d := mustCompile(t, "click[detail=FOO]")
	require.Equal(t, descriptor.OperandIdentifier, d.Tests[0].Operand.Kind)
	ev := newEvent(map[string]any{"detail": "bar"})

	_, err := e.Evaluate(context.Background(), d.Tests, ev)
	require.ErrorIs(t, err, tables.ErrUnknownVariable)

	require.NoError(t, tbl.Variables.Set("FOO", func(context.Context, data.Event) (any, error) {
		return "bar", nil
	}))
	ok, err := e.Evaluate(context.Background(), d.Tests, ev)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	tbl := tables.New()
	boom := errors.New("boom")
	require.NoError(t, tbl.Variables.Set("BROKEN", func(context.Context, data.Event) (any, error) {
		return nil, boom
	}))
	e := newTestEvaluator(t, tbl)
	ctx := context.Background()
	ev := newEvent(map[string]any{"a": 1})

	tests := []struct {
		name string
		test descriptor.Test
		want error
	}{
		{"unknown operator", descriptor.Test{Property: "a", Operator: "~", Operand: descriptor.Number(1)}, tables.ErrUnknownOperator},
		{"resolver error", descriptor.Test{Property: "a", Operator: "=", Operand: descriptor.Identifier("BROKEN")}, boom},
		{"operator without operand", descriptor.Test{Property: "a", Operator: "="}, ErrInvalidTest},
		{"operand without operator", descriptor.Test{Property: "a", Operand: descriptor.Number(1)}, ErrInvalidTest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := e.Evaluate(ctx, []descriptor.Test{tt.test}, ev)
			require.False(t, ok)
			require.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("resolver errors are wrapped", func(t *testing.T) {
		t.Parallel()
		_, err := e.Evaluate(ctx, []descriptor.Test{{Property: "a", Operator: "=", Operand: descriptor.Identifier("BROKEN")}}, ev)
		require.ErrorIs(t, err, ErrVariableFailed)
	})

	t.Run("nil event", func(t *testing.T) {
		t.Parallel()
		_, err := e.Evaluate(ctx, nil, nil)
		require.ErrorIs(t, err, ErrNilEvent)
	})
}

func TestApplyMethods(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(t, tables.New())
	ctx := context.Background()

	t.Run("declaration order", func(t *testing.T) {
		t.Parallel()
		d := mustCompile(t, "click.prevent[altKey].stop")
		ev := newEvent(nil)
		require.NoError(t, e.ApplyMethods(ctx, d.MethodNames, ev))
		require.Equal(t, []string{"preventDefault", "stopPropagation"}, *ev.calls)
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()
		d := mustCompile(t, "click.prevent.teleport")
		ev := newEvent(nil)
		err := e.ApplyMethods(ctx, d.MethodNames, ev)
		require.ErrorIs(t, err, tables.ErrUnknownMethod)
		require.Empty(t, *ev.calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		ev := newEvent(nil)
		require.ErrorIs(t, e.ApplyMethods(cctx, []string{"stop"}, ev), context.Canceled)
		require.Empty(t, *ev.calls)
	})
}

func TestWrap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("methods run before the callback", func(t *testing.T) {
		t.Parallel()
		e := newTestEvaluator(t, tables.New())
		d := mustCompile(t, "keydown[altKey][!ctrlKey].prevent")
		ev := newEvent(map[string]any{"altKey": true, "ctrlKey": false})

		h := e.Wrap(d, func(_ context.Context, got data.Event) error {
			require.Same(t, ev, got)
			*ev.calls = append(*ev.calls, "callback")
			return nil
		})
		require.NoError(t, h(ctx, ev))
		require.Equal(t, []string{"preventDefault", "callback"}, *ev.calls)
	})

	t.Run("failing tests leave the event untouched", func(t *testing.T) {
		t.Parallel()
		e := newTestEvaluator(t, tables.New())
		d := mustCompile(t, "click[altKey][ctrlKey].stop")
		ev := newEvent(map[string]any{"altKey": true, "ctrlKey": false})

		called := false
		h := e.Wrap(d, func(context.Context, data.Event) error {
			called = true
			return nil
		})
		require.NoError(t, h(ctx, ev))
		require.False(t, called)
		require.Empty(t, *ev.calls)
	})

	t.Run("errors do not disable the handler", func(t *testing.T) {
		t.Parallel()
		tbl := tables.New()
		e := newTestEvaluator(t, tbl)
		d := mustCompile(t, "click.teleport")

		calls := 0
		h := e.Wrap(d, func(context.Context, data.Event) error {
			calls++
			return nil
		})
		require.ErrorIs(t, h(ctx, newEvent(nil)), tables.ErrUnknownMethod)
		require.Zero(t, calls)

		require.NoError(t, tbl.Methods.Set("teleport", func(data.Event) {}))
		require.NoError(t, h(ctx, newEvent(nil)))
		require.Equal(t, 1, calls)
	})

	t.Run("callback error is returned", func(t *testing.T) {
		t.Parallel()
		e := newTestEvaluator(t, tables.New())
		boom := errors.New("boom")
		h := e.Wrap(mustCompile(t, "click.stop"), func(context.Context, data.Event) error { return boom })
		require.ErrorIs(t, h(ctx, newEvent(nil)), boom)
	})
}

func TestNewEvaluator(t *testing.T) {
	t.Parallel()

	e, err := NewEvaluator()
	require.NoError(t, err)
	require.NotNil(t, e.Tables())
	require.True(t, e.Tables().Methods.Has(tables.MethodPrevent))
	require.Equal(t, "modifier.Evaluator", e.String())

	_, err = NewEvaluator(WithTables(nil))
	require.Error(t, err)
	_, err = NewEvaluator(WithLogger(nil))
	require.Error(t, err)
	_, err = NewEvaluator(WithLogHandler(nil))
	require.Error(t, err)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	e, err = NewEvaluator(WithLogger(logger))
	require.NoError(t, err)
	require.Same(t, logger, e.logger)
}
