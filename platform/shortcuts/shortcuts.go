// Package shortcuts maps key combinations pressed on an element to actions.
//
// Deprecated: modifier bindings such as `keydown[ctrlKey][code="KeyS"].stop.prevent`
// express the same thing through the binding package.
package shortcuts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robbyt/go-evmod/execution/data"
	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/platform/binding"
	"github.com/robbyt/go-evmod/platform/dom"
	"github.com/robbyt/go-evmod/platform/selector"
)

// KeyEvent is the event type a Table listens to once attached.
const KeyEvent = "keydown"

var ErrInvalidCombo = errors.New("invalid key combination")

// Option configures a Table.
type Option func(*Table) error

func WithLogHandler(handler slog.Handler) Option {
	return func(t *Table) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		t.logHandler = handler
		t.logger = nil
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		t.logger = logger
		t.logHandler = nil
		return nil
	}
}

// Table holds the shortcuts of each element.
type Table struct {
	logHandler slog.Handler
	logger     *slog.Logger
	deprecated sync.Once

	mu       sync.RWMutex
	entries  map[*dom.Element]map[string]binding.Action
	attached map[*dom.Element]dom.ListenerID
}

func New(opts ...Option) (*Table, error) {
	t := &Table{
		entries:  make(map[*dom.Element]map[string]binding.Action),
		attached: make(map[*dom.Element]dom.ListenerID),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	t.logHandler, t.logger = helpers.LoggerOrDefault(t.logger, t.logHandler, "shortcuts", "Table")
	return t, nil
}

// Combo renders a key combination in its canonical form: the pressed
// modifiers in the order ctrl, alt, shift, followed by the key code.
func Combo(ctrl, alt, shift bool, code string) string {
	parts := make([]string, 0, 4)
	if ctrl {
		parts = append(parts, "ctrl")
	}
	if alt {
		parts = append(parts, "alt")
	}
	if shift {
		parts = append(parts, "shift")
	}
	return strings.Join(append(parts, code), "+")
}

// Normalize parses a combination such as "Shift+Ctrl+KeyS" into its
// canonical form. The last part is the key code and keeps its case.
func Normalize(combo string) (string, error) {
	parts := strings.Split(strings.TrimSpace(combo), "+")
	code := strings.TrimSpace(parts[len(parts)-1])
	if code == "" {
		return "", fmt.Errorf("%w: %q has no key code", ErrInvalidCombo, combo)
	}

	var ctrl, alt, shift bool
	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "ctrl", "control":
			ctrl = true
		case "alt":
			alt = true
		case "shift":
			shift = true
		default:
			return "", fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidCombo, p, combo)
		}
	}
	return Combo(ctrl, alt, shift, code), nil
}

// Add registers action for combo on el. The first call logs a deprecation
// notice.
func (t *Table) Add(el *dom.Element, combo string, action binding.Action) error {
	t.deprecated.Do(func() {
		t.logger.Warn("shortcuts are deprecated, modifier bindings are a better alternative")
	})
	if el == nil {
		return binding.ErrNilTarget
	}
	if action == nil {
		return fmt.Errorf("%w: nil action", binding.ErrInvalidAction)
	}
	key, err := Normalize(combo)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[el] == nil {
		t.entries[el] = make(map[string]binding.Action)
	}
	t.entries[el][key] = action
	return nil
}

// Delete removes a shortcut and reports whether it existed.
func (t *Table) Delete(el *dom.Element, combo string) bool {
	key, err := Normalize(combo)
	if err != nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	entries, ok := t.entries[el]
	if !ok {
		return false
	}
	if _, ok := entries[key]; !ok {
		return false
	}
	delete(entries, key)
	if len(entries) == 0 {
		delete(t.entries, el)
	}
	return true
}

// Len returns the number of shortcuts registered on el.
func (t *Table) Len(el *dom.Element) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries[el])
}

func (t *Table) lookup(el *dom.Element, key string) (binding.Action, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.entries[el][key]
	return a, ok
}

// Handle is a keydown listener. Repeated key events, and elements without
// shortcuts, are ignored. On a hit the event stops propagating, its default
// is prevented, and the action runs on the current target.
func (t *Table) Handle(ctx context.Context, ev data.Event) error {
	de, ok := ev.(*dom.Event)
	if !ok || de.CurrentTarget() == nil {
		return nil
	}
	if repeat, _ := ev.Property("repeat"); data.Truthy(repeat) {
		return nil
	}

	code, _ := ev.Property("code")
	key := Combo(flag(ev, "ctrlKey"), flag(ev, "altKey"), flag(ev, "shiftKey"), data.ToString(code))

	target := de.CurrentTarget()
	action, ok := t.lookup(target, key)
	if !ok {
		return nil
	}

	ev.StopPropagation()
	ev.PreventDefault()
	t.logger.Debug("shortcut matched", "target", target.String(), "combo", key)

	h, err := binding.Handler(target, action)
	if err != nil {
		return err
	}
	return h(ctx, ev)
}

// Attach makes el deliver its keydown events to the table. Attaching an
// element twice registers one listener.
func (t *Table) Attach(el *dom.Element) (dom.ListenerID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.attached[el]; ok {
		return id, nil
	}
	id, err := el.AddEventListener(KeyEvent, t.Handle)
	if err != nil {
		return "", err
	}
	t.attached[el] = id
	return id, nil
}

// Detach removes the listener added by Attach.
func (t *Table) Detach(el *dom.Element) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.attached[el]
	if !ok {
		return false
	}
	delete(t.attached, el)
	return el.RemoveEventListener(KeyEvent, id)
}

// DetachAll removes every listener added by Attach and returns how many
// elements were detached.
func (t *Table) DetachAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for el, id := range t.attached {
		if el.RemoveEventListener(KeyEvent, id) {
			n++
		}
		delete(t.attached, el)
	}
	return n
}

// FromObject adds, for every element matched by a selector of obj, each
// combination of its inner map, and attaches the element.
func (t *Table) FromObject(doc *dom.Document, obj map[string]map[string]binding.Action, opts selector.Options) error {
	if opts.Logger == nil && opts.LogHandler == nil {
		opts.LogHandler = t.logHandler
	}
	return selector.ForEach(doc, obj, func(el *dom.Element, combos map[string]binding.Action) error {
		var errs []error
		for combo, action := range combos {
			if err := t.Add(el, combo, action); err != nil {
				errs = append(errs, err)
			}
		}
		if _, err := t.Attach(el); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}, opts)
}

func flag(ev data.Event, name string) bool {
	v, _ := ev.Property(name)
	return data.Truthy(v)
}
