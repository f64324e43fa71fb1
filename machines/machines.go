// Package machines creates script modules for any supported machine and
// registers their exported functions as variables.
package machines

import (
	"context"
	"errors"
	"fmt"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/execution/tables"
	"github.com/robbyt/go-evmod/machines/extism"
	"github.com/robbyt/go-evmod/machines/js"
	"github.com/robbyt/go-evmod/machines/lua"
	"github.com/robbyt/go-evmod/machines/risor"
	"github.com/robbyt/go-evmod/machines/starlark"
	"github.com/robbyt/go-evmod/machines/types"
)

// ErrVariableExists is returned by Register when a module exports a name
// that is already a variable.
var ErrVariableExists = errors.New("variable already registered")

// NewModule compiles content with the machine of the given kind.
func NewModule(ctx context.Context, kind types.Type, name string, content []byte, opts ...types.Option) (types.Module, error) {
	switch kind {
	case types.Starlark:
		return starlark.New(ctx, name, content, opts...)
	case types.Risor:
		return risor.New(ctx, name, content, opts...)
	case types.Lua:
		return lua.New(ctx, name, content, opts...)
	case types.JS:
		return js.New(ctx, name, content, opts...)
	case types.Extism:
		return extism.New(ctx, name, content, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownType, kind)
	}
}

// Register adds every variable of m to t. Nothing is registered when any
// name is already taken.
func Register(t *tables.Tables, m types.Module) error {
	names := m.Variables()
	entries := make(map[string]tables.VariableFunc, len(names))
	for _, name := range names {
		entries[name] = Resolver(m, name)
	}
	err := t.Variables.Add(entries)
	if errors.Is(err, tables.ErrEntryExists) {
		return fmt.Errorf("%w: %w (module %s)", ErrVariableExists, err, m.Name())
	}
	return err
}

// Unregister removes the variables of m from t.
func Unregister(t *tables.Tables, m types.Module) {
	for _, name := range m.Variables() {
		t.Variables.Delete(name)
	}
}

// Resolver adapts one variable of a module to a table entry.
func Resolver(m types.Module, variable string) tables.VariableFunc {
	return func(ctx context.Context, ev data.Event) (any, error) {
		return m.Resolve(ctx, variable, ev)
	}
}
