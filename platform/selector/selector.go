// Package selector runs a callback for the elements matched by each CSS
// selector of a map.
package selector

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/robbyt/go-evmod/internal/helpers"
	"github.com/robbyt/go-evmod/platform/dom"
)

// Options controls which elements a selector applies to.
type Options struct {
	// Root limits matching to descendants of an element. Defaults to the document.
	Root *dom.Element `yaml:"-" toml:"-"`

	// Selector is resolved against the document to find Root when Root is nil.
	Selector string `yaml:"root,omitempty" toml:"root,omitempty"`

	// All applies to every match instead of only the first.
	All bool `yaml:"all,omitempty" toml:"all,omitempty"`

	LogHandler slog.Handler `yaml:"-" toml:"-"`
	Logger     *slog.Logger `yaml:"-" toml:"-"`
}

// ForEach calls fn for the elements matched by every selector in obj, with
// the value stored under that selector. Selectors run in sorted order. A
// selector without matches is logged and skipped. Errors from invalid
// selectors and from fn are joined, and do not stop the remaining selectors.
func ForEach[T any](doc *dom.Document, obj map[string]T, fn func(el *dom.Element, value T) error, opts Options) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if fn == nil {
		return fmt.Errorf("callback cannot be nil")
	}
	_, logger := helpers.LoggerOrDefault(opts.Logger, opts.LogHandler, "selector", "ForEach")

	root, err := resolveRoot(doc, opts)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var errs []error
	for _, sel := range keys {
		elems, err := Match(root, sel, opts.All)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(elems) == 0 {
			logger.Warn("could not find any matching element", "selector", sel)
			continue
		}
		for _, el := range elems {
			if err := fn(el, obj[sel]); err != nil {
				errs = append(errs, fmt.Errorf("selector %q on %s: %w", sel, el, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Match returns the first element under root matching sel, or every match
// when all is set.
func Match(root *dom.Element, sel string, all bool) ([]*dom.Element, error) {
	if all {
		return root.QuerySelectorAll(sel)
	}
	el, err := root.QuerySelector(sel)
	if err != nil || el == nil {
		return nil, err
	}
	return []*dom.Element{el}, nil
}

func resolveRoot(doc *dom.Document, opts Options) (*dom.Element, error) {
	if opts.Root != nil {
		return opts.Root, nil
	}
	if opts.Selector == "" {
		return doc.Root(), nil
	}
	root, err := doc.QuerySelector(opts.Selector)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("root selector %q matched nothing", opts.Selector)
	}
	return root, nil
}
