// Package config loads declarative binding files: script modules to import,
// modifier bindings and shortcuts per CSS selector, written in YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/robbyt/go-evmod/machines/types"
	"github.com/robbyt/go-evmod/platform/shortcuts"
)

// Format is a config file encoding.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

// Import is a script module whose exported functions become variables. The
// module is read from URL, or given inline as Source.
type Import struct {
	URL    string `yaml:"url,omitempty"    toml:"url,omitempty"`
	Source string `yaml:"source,omitempty" toml:"source,omitempty"`
	// Machine defaults to the one matching the URL's file extension. Inline
	// sources must name it.
	Machine     string   `yaml:"machine,omitempty"     toml:"machine,omitempty"`
	Entrypoints []string `yaml:"entrypoints,omitempty" toml:"entrypoints,omitempty"`
}

// Inline reports whether the module content is given in the file.
func (i Import) Inline() bool {
	return i.Source != ""
}

// Type returns the machine of the import.
func (i Import) Type() (types.Type, error) {
	if i.Machine != "" {
		return types.Parse(i.Machine)
	}
	if i.Inline() {
		return "", fmt.Errorf("%w: inline source needs a machine", types.ErrUnknownType)
	}
	p := i.URL
	if u, err := url.Parse(i.URL); err == nil && u.Path != "" {
		p = u.Path
	}
	return types.FromExtension(path.Ext(p))
}

// Options selects which elements the selectors of a file apply to.
type Options struct {
	// Root is a selector limiting matching to one subtree.
	Root string `yaml:"root,omitempty" toml:"root,omitempty"`
	All  bool   `yaml:"all,omitempty"  toml:"all,omitempty"`
}

// File is a decoded config file. Bindings and Shortcuts map a CSS selector
// to a modifier or key combination, mapped in turn to an action name.
type File struct {
	// BaseURL resolves relative import URLs. Load defaults it to the
	// directory of the config file.
	BaseURL   string                       `yaml:"base_url,omitempty"  toml:"base_url,omitempty"`
	Imports   []Import                     `yaml:"imports,omitempty"   toml:"imports,omitempty"`
	Bindings  map[string]map[string]string `yaml:"bindings,omitempty"  toml:"bindings,omitempty"`
	Shortcuts map[string]map[string]string `yaml:"shortcuts,omitempty" toml:"shortcuts,omitempty"`
	Options   Options                      `yaml:"options,omitempty"   toml:"options,omitempty"`
}

// Load reads and validates a config file.
func Load(fs afero.Fs, filename string) (*File, error) {
	format, err := FormatFromPath(filename)
	if err != nil {
		return nil, err
	}
	raw, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", filename, err)
	}
	f, err := Parse(filename, raw, format)
	if err != nil {
		return nil, err
	}
	if f.BaseURL == "" {
		if abs, err := filepath.Abs(filepath.Dir(filename)); err == nil {
			f.BaseURL = abs + string(filepath.Separator)
		}
	}
	return f, nil
}

// Parse decodes and validates config data. source names the data in errors.
func Parse(source string, raw []byte, format Format) (*File, error) {
	var f File
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(raw, &f)
	case TOML:
		err = toml.Unmarshal(raw, &f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &f, nil
}

// Validate checks imports, action names and shortcut combinations. Modifier
// syntax is left to the compiler.
func (f *File) Validate() error {
	var errs []error
	for i, imp := range f.Imports {
		switch {
		case imp.URL == "" && !imp.Inline():
			errs = append(errs, fmt.Errorf("%w: import %d has no url or source", ErrInvalidConfig, i))
			continue
		case imp.URL != "" && imp.Inline():
			errs = append(errs, fmt.Errorf("%w: import %d has both url and source", ErrInvalidConfig, i))
			continue
		}
		if _, err := imp.Type(); err != nil {
			name := imp.URL
			if imp.Inline() {
				name = fmt.Sprintf("%d (inline)", i)
			}
			errs = append(errs, fmt.Errorf("%w: import %s: %w", ErrInvalidConfig, name, err))
		}
	}
	for _, sel := range sortedKeys(f.Bindings) {
		for _, mod := range sortedKeys(f.Bindings[sel]) {
			if f.Bindings[sel][mod] == "" {
				errs = append(errs, fmt.Errorf("%w: binding %s %q has no action", ErrInvalidConfig, sel, mod))
			}
		}
	}
	for _, sel := range sortedKeys(f.Shortcuts) {
		for _, combo := range sortedKeys(f.Shortcuts[sel]) {
			if _, err := shortcuts.Normalize(combo); err != nil {
				errs = append(errs, fmt.Errorf("%w: shortcut %s: %w", ErrInvalidConfig, sel, err))
			}
			if f.Shortcuts[sel][combo] == "" {
				errs = append(errs, fmt.Errorf("%w: shortcut %s %q has no action", ErrInvalidConfig, sel, combo))
			}
		}
	}
	return errors.Join(errs...)
}

// Modifiers returns every modifier of the bindings, sorted and without duplicates.
func (f *File) Modifiers() []string {
	var out []string
	for _, mods := range f.Bindings {
		for mod := range mods {
			out = append(out, mod)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Actions returns every action name used by bindings and shortcuts, sorted
// and without duplicates.
func (f *File) Actions() []string {
	var out []string
	for _, table := range []map[string]map[string]string{f.Bindings, f.Shortcuts} {
		for _, entries := range table {
			for _, action := range entries {
				out = append(out, action)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
