package extism

import (
	"context"

	extismSDK "github.com/extism/go-sdk"
)

// sdkCompiledPluginAdapter adapts extismSDK.CompiledPlugin to compiledPlugin
type sdkCompiledPluginAdapter struct {
	plugin *extismSDK.CompiledPlugin
}

// newCompiledPluginAdapter creates a new adapter for extismSDK.CompiledPlugin
func newCompiledPluginAdapter(plugin *extismSDK.CompiledPlugin) compiledPlugin {
	return &sdkCompiledPluginAdapter{
		plugin: plugin,
	}
}

// Instance creates a new instance of the plugin
func (a *sdkCompiledPluginAdapter) Instance(ctx context.Context, config extismSDK.PluginInstanceConfig) (pluginInstance, error) {
	instance, err := a.plugin.Instance(ctx, config)
	if err != nil {
		return nil, err
	}
	return &sdkPluginAdapter{instance: instance}, nil
}

// Close releases resources associated with the plugin
func (a *sdkCompiledPluginAdapter) Close(ctx context.Context) error {
	return a.plugin.Close(ctx)
}

// sdkPluginAdapter adapts extismSDK.Plugin to pluginInstance
type sdkPluginAdapter struct {
	instance *extismSDK.Plugin
}

// CallWithContext calls a function in the plugin
func (a *sdkPluginAdapter) CallWithContext(ctx context.Context, name string, data []byte) (uint32, []byte, error) {
	return a.instance.CallWithContext(ctx, name, data)
}

// FunctionExists checks if a function exists in the plugin
func (a *sdkPluginAdapter) FunctionExists(name string) bool {
	return a.instance.FunctionExists(name)
}

// Close releases resources associated with the instance
func (a *sdkPluginAdapter) Close(ctx context.Context) error {
	return a.instance.Close(ctx)
}
