package extism

import (
	"context"
	"crypto/rand"
	"fmt"

	extismSDK "github.com/extism/go-sdk"
	"github.com/tetratelabs/wazero"
)

// compileOptions holds configuration for compiling a WASM module
type compileOptions struct {
	EnableWASI    bool
	RuntimeConfig wazero.RuntimeConfig
	HostFunctions []extismSDK.HostFunction
}

func defaultCompileOptions() *compileOptions {
	return &compileOptions{
		EnableWASI:    true,
		RuntimeConfig: wazero.NewRuntimeConfig().WithCloseOnContextDone(true),
	}
}

// compile creates a compiled Extism plugin from WASM bytes
func compile(ctx context.Context, wasmBytes []byte, opts *compileOptions) (compiledPlugin, error) {
	if len(wasmBytes) == 0 {
		return nil, ErrContentNil
	}
	if opts == nil {
		opts = defaultCompileOptions()
	}

	manifest := extismSDK.Manifest{
		Wasm: []extismSDK.Wasm{
			extismSDK.WasmData{Data: wasmBytes},
		},
	}
	config := extismSDK.PluginConfig{
		EnableWasi:    opts.EnableWASI,
		RuntimeConfig: opts.RuntimeConfig,
	}

	plugin, err := extismSDK.NewCompiledPlugin(ctx, manifest, config, opts.HostFunctions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return newCompiledPluginAdapter(plugin), nil
}

// wazeroModuleConfig gives plugin instances wall and monotonic clocks and a
// secure random source.
func wazeroModuleConfig() wazero.ModuleConfig {
	return wazero.NewModuleConfig().
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)
}
