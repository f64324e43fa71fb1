package machines

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/execution/descriptor"
	"github.com/robbyt/go-evmod/execution/tables"
	"github.com/robbyt/go-evmod/machines/mocks"
	"github.com/robbyt/go-evmod/machines/modifier/evaluator"
	"github.com/robbyt/go-evmod/machines/types"
)

type testEvent struct {
	*data.StaticProvider
}

func (testEvent) StopPropagation()          {}
func (testEvent) StopImmediatePropagation() {}
func (testEvent) PreventDefault()           {}

func logOpt() types.Option {
	return types.WithLogHandler(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNewModule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := []struct {
		kind    types.Type
		name    string
		content string
		want    []string
	}{
		{types.Starlark, "v.star", "def STAR(event):\n    return 1\n", []string{"STAR"}},
		{types.Risor, "RISOR.risor", "1", []string{"RISOR"}},
		{types.Lua, "v.lua", "function LUA(event) return 1 end", []string{"LUA"}},
		{types.JS, "v.js", "function JS(event) { return 1; }", []string{"JS"}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			m, err := NewModule(ctx, tt.kind, tt.name, []byte(tt.content), logOpt())
			require.NoError(t, err)
			defer func() { require.NoError(t, m.Close(ctx)) }()
			assert.Equal(t, tt.kind, m.Machine())
			assert.Equal(t, tt.want, m.Variables())
		})
	}

	_, err := NewModule(ctx, types.Extism, "v.wasm", nil, logOpt())
	require.Error(t, err)

	_, err = NewModule(ctx, types.Type("cobol"), "v.cbl", nil)
	require.ErrorIs(t, err, types.ErrUnknownType)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ev := testEvent{data.NewStaticProvider(map[string]any{"code": "KeyQ"})}

	m := &mocks.Module{}
	m.On("Name").Return("mock").Maybe()
	m.On("Variables").Return([]string{"QUIT_KEY"})
	m.On("Resolve", mock.Anything, "QUIT_KEY", ev).Return("KeyQ", nil)

	tbl := tables.New()
	require.NoError(t, Register(tbl, m))
	require.True(t, tbl.Variables.Has("QUIT_KEY"))

	e, err := evaluator.NewEvaluator(
		evaluator.WithTables(tbl),
		evaluator.WithLogHandler(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	)
	require.NoError(t, err)
	ok, err := e.Evaluate(ctx, []descriptor.Test{
		{Property: "code", Operator: "=", Operand: descriptor.Identifier("QUIT_KEY")},
	}, ev)
	require.NoError(t, err)
	require.True(t, ok)
	m.AssertExpectations(t)

	require.ErrorIs(t, Register(tbl, m), ErrVariableExists)

	Unregister(tbl, m)
	require.False(t, tbl.Variables.Has("QUIT_KEY"))
}

func TestRegisterIsAllOrNothing(t *testing.T) {
	t.Parallel()

	m := &mocks.Module{}
	m.On("Name").Return("mock")
	m.On("Variables").Return([]string{"FRESH", tables.VariableArrowForward})

	tbl := tables.New()
	require.ErrorIs(t, Register(tbl, m), ErrVariableExists)
	require.False(t, tbl.Variables.Has("FRESH"))
}

func TestRegisterConcurrentConflict(t *testing.T) {
	t.Parallel()

	tbl := tables.New()
	results := make(chan error, 2)
	for _, name := range []string{"left", "right"} {
		m := &mocks.Module{}
		m.On("Name").Return(name).Maybe()
		m.On("Variables").Return([]string{"NEXT_KEY"})
		go func() { results <- Register(tbl, m) }()
	}

	var failed int
	for range 2 {
		if err := <-results; err != nil {
			require.ErrorIs(t, err, ErrVariableExists)
			failed++
		}
	}
	require.Equal(t, 1, failed)
	require.True(t, tbl.Variables.Has("NEXT_KEY"))
}

func TestResolverPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	m := &mocks.Module{}
	m.On("Resolve", mock.Anything, "X", mock.Anything).Return(nil, boom)

	_, err := Resolver(m, "X")(context.Background(), testEvent{data.NewStaticProvider(nil)})
	require.ErrorIs(t, err, boom)
}
