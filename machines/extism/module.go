// Package extism runs WebAssembly plugins through Extism. Each configured
// entrypoint is a plugin export that receives the event properties as a JSON
// object and returns the variable value. Output that is valid JSON is decoded;
// anything else is returned as a string.
package extism

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	extismSDK "github.com/extism/go-sdk"
	"github.com/tidwall/gjson"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/machines/types"
)

// Module is a compiled plugin. Every Resolve runs on a fresh plugin
// instance, so calls may run concurrently.
type Module struct {
	name           string
	plugin         compiledPlugin
	variables      []string
	instanceConfig extismSDK.PluginInstanceConfig

	logHandler slog.Handler
	logger     *slog.Logger
}

var _ types.Module = (*Module)(nil)

// New compiles wasm and checks that every entrypoint is exported by the plugin.
// WASM exports cannot be told apart from helpers, so entrypoints are required.
func New(ctx context.Context, name string, wasm []byte, opts ...types.Option) (*Module, error) {
	cfg, err := types.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if len(cfg.Entrypoints) == 0 {
		return nil, ErrNoEntrypoints
	}

	plugin, err := compile(ctx, wasm, nil)
	if err != nil {
		return nil, err
	}

	m, err := newModule(ctx, name, plugin, cfg)
	if err != nil {
		_ = plugin.Close(ctx)
		return nil, err
	}
	return m, nil
}

func newModule(ctx context.Context, name string, plugin compiledPlugin, cfg *types.Config) (*Module, error) {
	handler, logger := helpers.LoggerOrDefault(cfg.Logger, cfg.LogHandler, "extism", "Module")
	logger = logger.With("module", name)

	m := &Module{
		name:      name,
		plugin:    plugin,
		variables: slices.Sorted(slices.Values(cfg.Entrypoints)),
		instanceConfig: extismSDK.PluginInstanceConfig{
			ModuleConfig: wazeroModuleConfig(),
		},
		logHandler: handler,
		logger:     logger,
	}

	instance, err := plugin.Instance(ctx, m.instanceConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin instance: %w", err)
	}
	defer func() { _ = instance.Close(ctx) }()

	var missing []string
	for _, entrypoint := range m.variables {
		if !instance.FunctionExists(entrypoint) {
			missing = append(missing, entrypoint)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing entrypoints %v", types.ErrNotExported, missing)
	}

	logger.Debug("module compiled", "variables", m.variables)
	return m, nil
}

func (m *Module) String() string {
	return "extism.Module"
}

// Name implements types.Module.
func (m *Module) Name() string { return m.name }

// Machine implements types.Module.
func (m *Module) Machine() types.Type { return types.Extism }

// Variables implements types.Module.
func (m *Module) Variables() []string { return slices.Clone(m.variables) }

// Resolve calls the export named variable with the event properties as JSON.
func (m *Module) Resolve(ctx context.Context, variable string, ev data.Event) (any, error) {
	if !slices.Contains(m.variables, variable) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotExported, variable)
	}
	logger := m.logger.WithGroup("Resolve")

	input, err := json.Marshal(data.Snapshot(ev))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event properties: %w", err)
	}

	instance, err := m.plugin.Instance(ctx, m.instanceConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin instance: %w", err)
	}
	defer func() { _ = instance.Close(ctx) }()

	startTime := time.Now()
	exit, output, err := instance.CallWithContext(ctx, variable, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCallFailed, variable, err)
	}
	if exit != 0 {
		return nil, fmt.Errorf("%w: %s: exit code %d", ErrCallFailed, variable, exit)
	}
	logger.DebugContext(ctx, "call complete", "variable", variable, "duration", time.Since(startTime))

	return decodeOutput(output), nil
}

// Close releases the compiled plugin.
func (m *Module) Close(ctx context.Context) error {
	return m.plugin.Close(ctx)
}

// decodeOutput decodes JSON output, falling back to the raw string.
func decodeOutput(output []byte) any {
	if len(output) == 0 {
		return nil
	}
	if !gjson.ValidBytes(output) {
		return string(output)
	}
	return gjson.ParseBytes(output).Value()
}
