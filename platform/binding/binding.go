// Package binding attaches handlers to dom elements for modifier
// expressions. A binding whose descriptor carries tests or methods runs its
// action only for events passing the tests, after applying the methods.
package binding

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/execution/descriptor"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/machines/modifier/compiler"
	"github.com/robbyt/go-evmod/machines/modifier/evaluator"
	"github.com/robbyt/go-evmod/platform/dom"
	"github.com/robbyt/go-evmod/platform/selector"
)

// Binding is a registered listener.
type Binding struct {
	ID         dom.ListenerID
	EventName  string
	Descriptor *descriptor.Descriptor
	// Handler is the function registered on Target: the action itself for
	// descriptors without modifiers, otherwise the filtering wrapper.
	Handler data.Handler
	Target  *dom.Element
}

// Remove unregisters the binding and reports whether it was still registered.
func (b *Binding) Remove() bool {
	return b.Target.RemoveEventListener(b.EventName, b.ID)
}

func (b *Binding) String() string {
	return fmt.Sprintf("binding.Binding{Target: %s, Descriptor: %s}", b.Target, b.Descriptor)
}

// Binder compiles modifier text, caching descriptors by source, and binds
// actions to elements.
type Binder struct {
	compiler   *compiler.Compiler
	evaluator  *evaluator.Evaluator
	logHandler slog.Handler
	logger     *slog.Logger

	cache sync.Map // source string -> *descriptor.Descriptor
}

// NewBinder creates a Binder.
func NewBinder(opts ...FunctionalOption) (*Binder, error) {
	b := &Binder{}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	if err := b.applyDefaults(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Binder) setupLogger() (slog.Handler, *slog.Logger) {
	return helpers.LoggerOrDefault(b.logger, b.logHandler, "binding", "Binder")
}

func (b *Binder) String() string {
	return "binding.Binder"
}

// Evaluator returns the evaluator used by wrapped handlers.
func (b *Binder) Evaluator() *evaluator.Evaluator {
	return b.evaluator
}

// Compiler returns the compiler used for Modifier specs.
func (b *Binder) Compiler() *compiler.Compiler {
	return b.compiler
}

// Descriptor compiles source, reusing an earlier result for the same text.
// Failed compilations are not cached.
func (b *Binder) Descriptor(source string) (*descriptor.Descriptor, error) {
	if d, ok := b.cache.Load(source); ok {
		return d.(*descriptor.Descriptor), nil
	}
	d, err := b.compiler.Compile(source)
	if err != nil {
		return nil, err
	}
	actual, _ := b.cache.LoadOrStore(source, d)
	return actual.(*descriptor.Descriptor), nil
}

// Bind registers action on target for the event named by spec.
func (b *Binder) Bind(target *dom.Element, spec Spec, action Action) (*Binding, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if spec == nil {
		return nil, fmt.Errorf("%w: nil spec", ErrInvalidSpec)
	}

	d, err := spec.descriptor(b)
	if err != nil {
		return nil, err
	}

	h, err := Handler(target, action)
	if err != nil {
		return nil, err
	}
	if d.HasModifiers() {
		h = b.evaluator.Wrap(d, h)
	}

	id, err := target.AddEventListener(d.EventName, h)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("bound event", "target", target.String(), "descriptor", d.String(), "id", id)
	return &Binding{
		ID:         id,
		EventName:  d.EventName,
		Descriptor: d,
		Handler:    h,
		Target:     target,
	}, nil
}

// FromObject binds, for every element matched by a selector of obj, each
// modifier of its inner map to the stored action. Modifiers bind in sorted
// order. Failures are joined and do not stop the remaining entries; the
// bindings made are returned either way.
func (b *Binder) FromObject(doc *dom.Document, obj map[string]map[string]Action, opts selector.Options) ([]*Binding, error) {
	if opts.Logger == nil && opts.LogHandler == nil {
		opts.LogHandler = b.logHandler
	}

	var bindings []*Binding
	err := selector.ForEach(doc, obj, func(el *dom.Element, actions map[string]Action) error {
		mods := make([]string, 0, len(actions))
		for m := range actions {
			mods = append(mods, m)
		}
		slices.Sort(mods)

		var errs []error
		for _, m := range mods {
			binding, err := b.Bind(el, Modifier(m), actions[m])
			if err != nil {
				errs = append(errs, fmt.Errorf("%q: %w", m, err))
				continue
			}
			bindings = append(bindings, binding)
		}
		return errors.Join(errs...)
	}, opts)
	return bindings, err
}
