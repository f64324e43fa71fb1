// Package risor runs Risor scripts as variables. The whole script is the
// body of the variable: it is evaluated once per test with two globals,
// event (a map of the event properties) and variable (the name being
// resolved), and its final expression is the operand value.
//
//	func forward() {
//		if event["direction"] == "rtl" {
//			return "ArrowLeft"
//		}
//		return "ArrowRight"
//	}
//	forward()
package risor

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"
	risorObject "github.com/risor-io/risor/object"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/machines/types"
)

// Module is a compiled Risor script. Compiled code is immutable and each
// evaluation runs on its own VM, so Resolve may be called concurrently.
type Module struct {
	name      string
	code      *risorCompiler.Code
	variables []string

	logHandler slog.Handler
	logger     *slog.Logger
}

var _ types.Module = (*Module)(nil)

// New compiles content. The script is exported under each configured
// entrypoint, or under the base name of the module without its extension.
func New(ctx context.Context, name string, content []byte, opts ...types.Option) (*Module, error) {
	cfg, err := types.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	handler, logger := helpers.LoggerOrDefault(cfg.Logger, cfg.LogHandler, "risor", "Module")
	logger = logger.With("module", name)

	code, err := compile(ctx, content)
	if err != nil {
		return nil, err
	}

	variables := slices.Clone(cfg.Entrypoints)
	if len(variables) == 0 {
		base := strings.TrimSuffix(path.Base(name), path.Ext(name))
		if !cfg.Exports(base) {
			return nil, types.ErrNoVariables
		}
		variables = []string{base}
	}
	slices.Sort(variables)

	logger.Debug("module compiled", "variables", variables)
	return &Module{
		name:       name,
		code:       code,
		variables:  variables,
		logHandler: handler,
		logger:     logger,
	}, nil
}

func (m *Module) String() string {
	return "risor.Module"
}

// Name implements types.Module.
func (m *Module) Name() string { return m.name }

// Machine implements types.Module.
func (m *Module) Machine() types.Type { return types.Risor }

// Variables implements types.Module.
func (m *Module) Variables() []string { return slices.Clone(m.variables) }

// Resolve evaluates the script for ev.
func (m *Module) Resolve(ctx context.Context, variable string, ev data.Event) (any, error) {
	if !slices.Contains(m.variables, variable) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotExported, variable)
	}
	logger := m.logger.WithGroup("Resolve")

	startTime := time.Now()
	result, err := risorLib.EvalCode(ctx, m.code,
		risorLib.WithGlobal(globalEvent, data.Snapshot(ev)),
		risorLib.WithGlobal(globalVariable, variable),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEvalFailed, variable, err)
	}
	logger.DebugContext(ctx, "evaluation complete", "variable", variable, "duration", time.Since(startTime))

	return toGo(variable, result)
}

// Close implements types.Module. Risor modules hold no resources.
func (m *Module) Close(context.Context) error { return nil }

func toGo(variable string, obj risorObject.Object) (any, error) {
	if obj == nil {
		return nil, nil
	}
	switch obj.Type() {
	case "error":
		return nil, fmt.Errorf("%w: %s: %s", ErrEvalFailed, variable, obj.Inspect())
	case "function":
		return nil, fmt.Errorf("%w: %s: script returned a function", ErrEvalFailed, variable)
	}
	return obj.Interface(), nil
}
