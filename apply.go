package evmod

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/robbyt/go-evmod/execution/script/loader"
	"github.com/robbyt/go-evmod/machines/modifier/compiler"
	"github.com/robbyt/go-evmod/platform/binding"
	"github.com/robbyt/go-evmod/platform/config"
	"github.com/robbyt/go-evmod/platform/dom"
	"github.com/robbyt/go-evmod/platform/selector"
	"github.com/robbyt/go-evmod/platform/shortcuts"
)

// ActionResolver maps an action name from a config file to an Action.
type ActionResolver func(name string) binding.Action

// Applied holds what ApplyConfig attached to a document.
type Applied struct {
	Bindings  []*binding.Binding
	Shortcuts *shortcuts.Table
}

// Remove detaches every binding and shortcut listener.
func (a *Applied) Remove() {
	for _, b := range a.Bindings {
		b.Remove()
	}
	if a.Shortcuts != nil {
		a.Shortcuts.DetachAll()
	}
}

// ImportConfig imports every module listed in f, inline sources included.
// Relative URLs resolve against the base URL of f.
func (e *Engine) ImportConfig(ctx context.Context, f *config.File) error {
	var base *url.URL
	if f.BaseURL != "" {
		var err error
		if base, err = loader.ParseLocation(f.BaseURL); err != nil {
			return err
		}
	}
	for _, imp := range f.Imports {
		kind, err := imp.Type()
		if err != nil {
			return err
		}
		opts := ImportOptions{Machine: kind, Entrypoints: imp.Entrypoints}
		if imp.Inline() {
			if err := e.ImportSource(ctx, imp.Source, opts); err != nil {
				return err
			}
			continue
		}
		u, err := loader.ResolveURL(base, imp.URL)
		if err != nil {
			return err
		}
		if err := e.Import(ctx, u.String(), opts); err != nil {
			return err
		}
	}
	return nil
}

// CheckConfig validates f, imports its modules and compiles every modifier
// strictly against the engine's tables. All compile errors are returned.
func (e *Engine) CheckConfig(ctx context.Context, f *config.File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := e.ImportConfig(ctx, f); err != nil {
		return err
	}

	strict, err := e.strictCompiler()
	if err != nil {
		return err
	}

	var errs []error
	for _, mod := range f.Modifiers() {
		if _, err := strict.Compile(mod); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyConfig imports the modules of f and attaches its bindings and
// shortcuts to doc. A nil resolve re-dispatches each action name as an event
// on the bound element.
func (e *Engine) ApplyConfig(ctx context.Context, f *config.File, doc *dom.Document, resolve ActionResolver) (*Applied, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := e.ImportConfig(ctx, f); err != nil {
		return nil, err
	}
	if resolve == nil {
		resolve = func(name string) binding.Action { return binding.EventName(name) }
	}

	opts := selector.Options{
		Selector:   f.Options.Root,
		All:        f.Options.All,
		LogHandler: e.cfg.GetHandler(),
	}
	applied := &Applied{}

	bindings, err := e.binder.FromObject(doc, resolveActions(f.Bindings, resolve), opts)
	applied.Bindings = bindings
	if err != nil {
		applied.Remove()
		return nil, fmt.Errorf("applying bindings: %w", err)
	}

	if len(f.Shortcuts) == 0 {
		return applied, nil
	}
	table, err := shortcuts.New(shortcuts.WithLogHandler(e.cfg.GetHandler()))
	if err != nil {
		applied.Remove()
		return nil, err
	}
	applied.Shortcuts = table
	if err := table.FromObject(doc, resolveActions(f.Shortcuts, resolve), opts); err != nil {
		applied.Remove()
		return nil, fmt.Errorf("applying shortcuts: %w", err)
	}

	e.logger.Info("config applied", "bindings", len(applied.Bindings), "shortcuts", len(f.Shortcuts))
	return applied, nil
}

// CheckModifier compiles source strictly against the engine's tables.
func (e *Engine) CheckModifier(source string) error {
	strict, err := e.strictCompiler()
	if err != nil {
		return err
	}
	_, err = strict.Compile(source)
	return err
}

func (e *Engine) strictCompiler() (*compiler.Compiler, error) {
	if e.compiler.Strict() {
		return e.compiler, nil
	}
	return compiler.NewCompiler(
		compiler.WithTables(e.Tables()),
		compiler.WithLogHandler(e.cfg.GetHandler()),
	)
}

func resolveActions(in map[string]map[string]string, resolve ActionResolver) map[string]map[string]binding.Action {
	out := make(map[string]map[string]binding.Action, len(in))
	for sel, entries := range in {
		actions := make(map[string]binding.Action, len(entries))
		for key, name := range entries {
			actions[key] = resolve(name)
		}
		out[sel] = actions
	}
	return out
}
