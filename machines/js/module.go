// Package js runs JavaScript modules on goja. Every top-level function the
// module declares is a variable, called with an object of event properties:
//
//	function NEXT_KEY(event) {
//	  return event.direction === "rtl" ? "ArrowLeft" : "ArrowRight";
//	}
package js

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dop251/goja"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/machines/types"
)

// Module is an initialized JavaScript module. A goja runtime is not safe for
// concurrent use, so calls into the module are serialized.
type Module struct {
	name      string
	funcs     map[string]goja.Callable
	variables []string

	mu sync.Mutex
	vm *goja.Runtime

	logHandler slog.Handler
	logger     *slog.Logger
}

var _ types.Module = (*Module)(nil)

// New compiles content in strict mode and runs it once to declare its functions.
func New(ctx context.Context, name string, content []byte, opts ...types.Option) (*Module, error) {
	cfg, err := types.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	handler, logger := helpers.LoggerOrDefault(cfg.Logger, cfg.LogHandler, "js", "Module")
	logger = logger.With("module", name)

	if content == nil {
		return nil, ErrContentNil
	}
	prog, err := goja.Compile(name, string(content), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	m := &Module{
		name:       name,
		funcs:      make(map[string]goja.Callable),
		vm:         goja.New(),
		logHandler: handler,
		logger:     logger,
	}
	builtins := m.vm.GlobalObject().Keys()

	if _, err := m.run(ctx, func() (goja.Value, error) { return m.vm.RunProgram(prog) }); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	global := m.vm.GlobalObject()
	for _, key := range global.Keys() {
		if slices.Contains(builtins, key) || !cfg.Exports(key) {
			continue
		}
		fn, ok := goja.AssertFunction(global.Get(key))
		if !ok {
			continue
		}
		m.funcs[key] = fn
		m.variables = append(m.variables, key)
	}
	slices.Sort(m.variables)

	if missing := cfg.MissingEntrypoints(m.variables); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing entrypoints %v", types.ErrNotExported, missing)
	}
	if len(m.variables) == 0 {
		return nil, types.ErrNoVariables
	}

	logger.Debug("module initialized", "variables", m.variables)
	return m, nil
}

func (m *Module) String() string {
	return "js.Module"
}

// Name implements types.Module.
func (m *Module) Name() string { return m.name }

// Machine implements types.Module.
func (m *Module) Machine() types.Type { return types.JS }

// Variables implements types.Module.
func (m *Module) Variables() []string { return slices.Clone(m.variables) }

// Resolve calls the function named variable with the event properties.
// The call is interrupted when ctx is done.
func (m *Module) Resolve(ctx context.Context, variable string, ev data.Event) (any, error) {
	fn, ok := m.funcs[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotExported, variable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	arg := m.vm.ToValue(data.Snapshot(ev))
	val, err := m.run(ctx, func() (goja.Value, error) {
		return fn(goja.Undefined(), arg)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, variable, err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}

// run calls f, interrupting the runtime if ctx is done first. The watcher
// goroutine has exited and the interrupt flag is clear when run returns.
func (m *Module) run(ctx context.Context, f func() (goja.Value, error)) (goja.Value, error) {
	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			m.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := f()
	close(done)
	<-watcherDone
	m.vm.ClearInterrupt()
	return val, err
}

// Close implements types.Module. The runtime is reclaimed by the garbage collector.
func (m *Module) Close(context.Context) error { return nil }
