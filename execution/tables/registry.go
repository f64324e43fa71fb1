package tables

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
)

// Registry is a name-keyed table of functions guarded by a read-mostly lock.
// Descriptors reference entries by name and look them up at evaluation time,
// so entries may be added or removed while bindings are live.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
	missing error
}

func newRegistry[T any](missing error) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
		missing: missing,
	}
}

// Lookup returns the entry registered under name, or the registry's typed
// unknown-entry error wrapped with the name.
func (r *Registry[T]) Lookup(name string) (T, error) {
	r.mu.RLock()
	fn, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", r.missing, name)
	}
	return fn, nil
}

// Set registers fn under name, replacing any existing entry.
func (r *Registry[T]) Set(name string, fn T) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidEntry)
	}
	if isNil(fn) {
		return fmt.Errorf("%w: %q has a nil function", ErrInvalidEntry, name)
	}
	r.mu.Lock()
	r.entries[name] = fn
	r.mu.Unlock()
	return nil
}

// Add registers every entry under a single lock. Nothing is registered when
// any entry is invalid or any name is already taken.
func (r *Registry[T]) Add(entries map[string]T) error {
	names := slices.Sorted(maps.Keys(entries))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: name is empty", ErrInvalidEntry)
		}
		if isNil(entries[name]) {
			return fmt.Errorf("%w: %q has a nil function", ErrInvalidEntry, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, ok := r.entries[name]; ok {
			return fmt.Errorf("%w: %q", ErrEntryExists, name)
		}
	}
	for _, name := range names {
		r.entries[name] = entries[name]
	}
	return nil
}

// Delete removes the entry registered under name. Removing a missing entry is a no-op.
func (r *Registry[T]) Delete(name string) {
	r.mu.Lock()
	delete(r.entries, name)
	r.mu.Unlock()
}

// Has reports whether an entry is registered under name.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of registered entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry[T]) clone() *Registry[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry[T]{
		entries: maps.Clone(r.entries),
		missing: r.missing,
	}
}

// isNil reports whether fn is a nil function value.
func isNil[T any](fn T) bool {
	v := reflect.ValueOf(any(fn))
	if !v.IsValid() {
		return true
	}
	return v.Kind() == reflect.Func && v.IsNil()
}
