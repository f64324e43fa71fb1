// Package starlark runs Starlark modules whose top-level functions compute
// variable values. Each function takes the event as its only argument:
//
//	def SECOND_ROW(event):
//	    return "Key" + event.key.upper()
package starlark

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	starlarkLib "go.starlark.net/starlark"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/machines/types"
)

// Module is an initialized Starlark module. Its globals are frozen after the
// module body runs, so its functions may be called concurrently.
type Module struct {
	name      string
	funcs     map[string]*starlarkLib.Function
	variables []string

	logHandler slog.Handler
	logger     *slog.Logger
}

var _ types.Module = (*Module)(nil)

// New compiles content and runs the module body once to define its functions.
func New(ctx context.Context, name string, content []byte, opts ...types.Option) (*Module, error) {
	cfg, err := types.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	handler, logger := helpers.LoggerOrDefault(cfg.Logger, cfg.LogHandler, "starlark", "Module")
	logger = logger.With("module", name)

	prog, err := compile(name, content, nil)
	if err != nil {
		return nil, err
	}

	thread := newThread(ctx, "init", logger)
	defer thread.stop()

	startTime := time.Now()
	globals, err := prog.Init(thread.Thread, standardModules())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}
	globals.Freeze()

	m := &Module{
		name:       name,
		funcs:      make(map[string]*starlarkLib.Function),
		logHandler: handler,
		logger:     logger,
	}
	for global, v := range globals {
		fn, ok := v.(*starlarkLib.Function)
		if !ok || !cfg.Exports(global) {
			continue
		}
		m.funcs[global] = fn
	}
	m.variables = slices.Sorted(maps.Keys(m.funcs))

	if missing := cfg.MissingEntrypoints(m.variables); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing entrypoints %v", types.ErrNotExported, missing)
	}
	if len(m.variables) == 0 {
		return nil, types.ErrNoVariables
	}

	logger.Debug("module initialized", "variables", m.variables, "duration", time.Since(startTime))
	return m, nil
}

func (m *Module) String() string {
	return "starlark.Module"
}

// Name implements types.Module.
func (m *Module) Name() string { return m.name }

// Machine implements types.Module.
func (m *Module) Machine() types.Type { return types.Starlark }

// Variables implements types.Module.
func (m *Module) Variables() []string { return slices.Clone(m.variables) }

// Resolve calls the function named variable on a fresh thread. The thread is
// cancelled when ctx is done.
func (m *Module) Resolve(ctx context.Context, variable string, ev data.Event) (any, error) {
	fn, ok := m.funcs[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotExported, variable)
	}

	arg, err := newEventValue(data.Snapshot(ev))
	if err != nil {
		return nil, err
	}

	thread := newThread(ctx, variable, m.logger)
	defer thread.stop()

	val, err := starlarkLib.Call(thread.Thread, fn, starlarkLib.Tuple{arg}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, variable, err)
	}
	return toGo(val)
}

// Close implements types.Module. Starlark modules hold no resources.
func (m *Module) Close(context.Context) error { return nil }

type thread struct {
	*starlarkLib.Thread
	stop func() bool
}

func newThread(ctx context.Context, name string, logger *slog.Logger) thread {
	t := &starlarkLib.Thread{
		Name: name,
		Print: func(t *starlarkLib.Thread, msg string) {
			logger.InfoContext(ctx, msg, "starlark-thread", t.Name)
		},
	}
	stop := context.AfterFunc(ctx, func() {
		t.Cancel(ctx.Err().Error())
	})
	return thread{Thread: t, stop: stop}
}
