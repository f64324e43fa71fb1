// Package evmod binds handlers to events through modifier expressions such
// as `keydown[ctrlKey][code="KeyS"].prevent`: an event name, tests on the
// event's properties, and methods applied to events that pass the tests.
//
// An Engine ties together one set of operator, variable and method tables,
// the modifier compiler and evaluator, the binder attaching handlers to dom
// elements, and an importer for script modules whose functions become
// variables.
package evmod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/execution/descriptor"
	"github.com/robbyt/go-evmod/execution/script/loader"
	"github.com/robbyt/go-evmod/execution/tables"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/machines"
	"github.com/robbyt/go-evmod/machines/modifier/compiler"
	"github.com/robbyt/go-evmod/machines/modifier/evaluator"
	"github.com/robbyt/go-evmod/machines/types"
	"github.com/robbyt/go-evmod/options"
	"github.com/robbyt/go-evmod/platform/binding"
	"github.com/robbyt/go-evmod/platform/dom"
	"github.com/robbyt/go-evmod/platform/selector"
)

// ImportOptions selects the machine and the exported functions of an
// imported module.
type ImportOptions struct {
	// Machine defaults to the one matching the file extension of the URL.
	Machine types.Type
	// Entrypoints limits the functions registered as variables.
	Entrypoints []string
}

// Engine is the entry point of the library.
type Engine struct {
	cfg       *options.Config
	compiler  *compiler.Compiler
	evaluator *evaluator.Evaluator
	binder    *binding.Binder
	importer  *loader.Importer
	logger    *slog.Logger

	mu      sync.Mutex
	modules []types.Module
}

// New creates an Engine.
func New(opts ...options.Option) (*Engine, error) {
	cfg := options.DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	if err := options.WithDefaults()(cfg); err != nil {
		return nil, fmt.Errorf("error applying defaults: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	handler := cfg.GetHandler()
	compilerOpts := []compiler.FunctionalOption{compiler.WithLogHandler(handler)}
	if cfg.IsStrict() {
		compilerOpts = append(compilerOpts, compiler.WithTables(cfg.GetTables()))
	}
	c, err := compiler.NewCompiler(compilerOpts...)
	if err != nil {
		return nil, err
	}
	ev, err := evaluator.NewEvaluator(evaluator.WithTables(cfg.GetTables()), evaluator.WithLogHandler(handler))
	if err != nil {
		return nil, err
	}
	b, err := binding.NewBinder(binding.WithCompiler(c), binding.WithEvaluator(ev), binding.WithLogHandler(handler))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		compiler:  c,
		evaluator: ev,
		binder:    b,
	}
	_, e.logger = helpers.SetupLogger(handler, "evmod", "Engine")

	e.importer, err = loader.NewImporter(
		cfg.GetBaseURL(),
		e.importFunc(ImportOptions{}),
		loader.WithHTTPOptions(cfg.GetHTTPOptions()),
		loader.WithLogHandler(handler),
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) String() string {
	return "evmod.Engine"
}

// Tables returns the tables shared by the compiler and the evaluator.
func (e *Engine) Tables() *tables.Tables {
	return e.cfg.GetTables()
}

// Compiler returns the compiler used by Compile. It is strict only when the
// engine was created with strict compilation.
func (e *Engine) Compiler() *compiler.Compiler { return e.compiler }

// Evaluator returns the evaluator that runs compiled tests against the
// engine's tables.
func (e *Engine) Evaluator() *evaluator.Evaluator { return e.evaluator }

// Binder returns the binder used by Bind, BindObject and ApplyConfig.
func (e *Engine) Binder() *binding.Binder { return e.binder }

// Importer returns the importer that loads modules for Import and
// ImportSource.
func (e *Engine) Importer() *loader.Importer { return e.importer }

// Compile compiles a modifier expression. Results are cached by source.
func (e *Engine) Compile(source string) (*descriptor.Descriptor, error) {
	return e.binder.Descriptor(source)
}

// Evaluate reports whether ev passes the tests of a modifier expression. It
// does not apply the methods.
func (e *Engine) Evaluate(ctx context.Context, source string, ev data.Event) (bool, error) {
	d, err := e.Compile(source)
	if err != nil {
		return false, err
	}
	return e.evaluator.Evaluate(ctx, d.Tests, ev)
}

// Handle runs the full decision for one event: when ev passes the tests of
// source, the methods are applied and next is called. next may be nil.
func (e *Engine) Handle(ctx context.Context, source string, ev data.Event, next data.Handler) error {
	d, err := e.Compile(source)
	if err != nil {
		return err
	}
	return e.evaluator.Wrap(d, next)(ctx, ev)
}

// Bind registers action on target for a modifier expression.
func (e *Engine) Bind(target *dom.Element, source string, action binding.Action) (*binding.Binding, error) {
	return e.binder.Bind(target, binding.Modifier(source), action)
}

// BindObject binds a selector -> modifier -> action map. See binding.Binder.FromObject.
func (e *Engine) BindObject(doc *dom.Document, obj map[string]map[string]binding.Action, opts selector.Options) ([]*binding.Binding, error) {
	return e.binder.FromObject(doc, obj, opts)
}

// AddModule compiles a script module and registers its exported functions
// as variables. Nothing is registered when a name is already taken.
func (e *Engine) AddModule(ctx context.Context, kind types.Type, name string, content []byte, entrypoints ...string) (types.Module, error) {
	opts := []types.Option{types.WithLogHandler(e.cfg.GetHandler())}
	if len(entrypoints) > 0 {
		opts = append(opts, types.WithEntrypoints(entrypoints...))
	}

	m, err := machines.NewModule(ctx, kind, name, content, opts...)
	if err != nil {
		return nil, err
	}
	if err := machines.Register(e.Tables(), m); err != nil {
		if cerr := m.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}

	e.mu.Lock()
	e.modules = append(e.modules, m)
	e.mu.Unlock()

	e.logger.Info("module added", "module", m.Name(), "machine", m.Machine(), "variables", m.Variables())
	return m, nil
}

// Modules returns the modules added so far.
func (e *Engine) Modules() []types.Module {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.Module(nil), e.modules...)
}

// Import loads a script module by URL, once per absolute URL, and adds it.
func (e *Engine) Import(ctx context.Context, rawURL string, opts ImportOptions) error {
	return e.importer.ImportWith(ctx, rawURL, e.importFunc(opts))
}

// ImportSource adds a module from inline content, once per distinct
// content. opts.Machine is required.
func (e *Engine) ImportSource(ctx context.Context, content string, opts ImportOptions) error {
	if opts.Machine == "" {
		return fmt.Errorf("%w: inline source needs a machine", types.ErrUnknownType)
	}
	l, err := loader.NewFromString(content)
	if err != nil {
		return err
	}
	return e.importer.ImportLoader(ctx, l, e.importFunc(opts))
}

func (e *Engine) importFunc(opts ImportOptions) loader.ImportFunc {
	return func(ctx context.Context, source *url.URL, content []byte) error {
		kind := opts.Machine
		if kind == "" {
			var err error
			if kind, err = types.FromExtension(path.Ext(source.Path)); err != nil {
				return err
			}
		}
		_, err := e.AddModule(ctx, kind, path.Base(source.Path), content, opts.Entrypoints...)
		return err
	}
}

// Close unregisters and closes every module.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	modules := e.modules
	e.modules = nil
	e.mu.Unlock()

	var errs []error
	for _, m := range modules {
		machines.Unregister(e.Tables(), m)
		if err := m.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing module %s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Sleep waits for the given number of seconds or until ctx is done.
func Sleep(ctx context.Context, seconds float64) error {
	if seconds <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
