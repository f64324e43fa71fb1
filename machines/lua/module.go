// Package lua runs Lua modules whose global functions compute variable
// values. Each function receives a table of the event properties:
//
//	function NEXT_KEY(event)
//	  if event.direction == "rtl" then return "ArrowLeft" end
//	  return "ArrowRight"
//	end
//
// Only the base, table, string and math libraries are opened.
package lua

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/machines/types"
)

// Module is a loaded Lua module. A Lua state is single threaded, so calls
// into the module are serialized.
type Module struct {
	name      string
	funcs     map[string]*lua.LFunction
	variables []string

	mu     sync.Mutex
	L      *lua.LState
	closed bool

	logHandler slog.Handler
	logger     *slog.Logger
}

var _ types.Module = (*Module)(nil)

// New creates a Lua state, runs content in it and exports the global
// functions the module defines.
func New(ctx context.Context, name string, content []byte, opts ...types.Option) (*Module, error) {
	cfg, err := types.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	handler, logger := helpers.LoggerOrDefault(cfg.Logger, cfg.LogHandler, "lua", "Module")
	logger = logger.With("module", name)

	if content == nil {
		return nil, ErrContentNil
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)

	builtins := make(map[string]bool)
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		builtins[k.String()] = true
	})

	L.SetContext(ctx)
	if err := L.DoString(string(content)); err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	L.RemoveContext()

	m := &Module{
		name:       name,
		funcs:      make(map[string]*lua.LFunction),
		L:          L,
		logHandler: handler,
		logger:     logger,
	}
	L.G.Global.ForEach(func(k, v lua.LValue) {
		fn, ok := v.(*lua.LFunction)
		key := k.String()
		if !ok || fn.IsG || builtins[key] || !cfg.Exports(key) {
			return
		}
		m.funcs[key] = fn
		m.variables = append(m.variables, key)
	})
	slices.Sort(m.variables)

	if missing := cfg.MissingEntrypoints(m.variables); len(missing) > 0 {
		L.Close()
		return nil, fmt.Errorf("%w: missing entrypoints %v", types.ErrNotExported, missing)
	}
	if len(m.variables) == 0 {
		L.Close()
		return nil, types.ErrNoVariables
	}

	logger.Debug("module initialized", "variables", m.variables)
	return m, nil
}

func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func (m *Module) String() string {
	return "lua.Module"
}

// Name implements types.Module.
func (m *Module) Name() string { return m.name }

// Machine implements types.Module.
func (m *Module) Machine() types.Type { return types.Lua }

// Variables implements types.Module.
func (m *Module) Variables() []string { return slices.Clone(m.variables) }

// Resolve calls the function named variable with a table of the event
// properties. The call is aborted when ctx is done.
func (m *Module) Resolve(ctx context.Context, variable string, ev data.Event) (any, error) {
	fn, ok := m.funcs[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotExported, variable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrModuleClosed
	}

	m.L.SetContext(ctx)
	defer m.L.RemoveContext()

	arg := toLua(m.L, data.Snapshot(ev))
	if err := m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, variable, err)
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return toGo(ret), nil
}

// Close closes the Lua state. Resolve fails after Close.
func (m *Module) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.L.Close()
	}
	return nil
}
