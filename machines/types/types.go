// Package types names the script machines that can back scripted variables,
// and defines the module interface they share.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the kind of script machine.
type Type string

const (
	Starlark Type = "starlark"
	Risor    Type = "risor"
	Lua      Type = "lua"
	JS       Type = "js"
	Extism   Type = "extism"
)

// ErrUnknownType is returned when parsing an unsupported machine name.
var ErrUnknownType = errors.New("unknown machine type")

// All returns every supported machine type.
func All() []Type {
	return []Type{Starlark, Risor, Lua, JS, Extism}
}

func (t Type) String() string {
	return string(t)
}

// Parse returns the machine type for name. Matching is case-insensitive and
// accepts a few common aliases.
func Parse(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "starlark", "star":
		return Starlark, nil
	case "risor":
		return Risor, nil
	case "lua":
		return Lua, nil
	case "js", "javascript", "goja":
		return JS, nil
	case "extism", "wasm":
		return Extism, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// FromExtension guesses the machine type from a script file extension.
func FromExtension(ext string) (Type, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "star", "starlark", "py":
		return Starlark, nil
	case "risor", "rsr":
		return Risor, nil
	case "lua":
		return Lua, nil
	case "js", "mjs":
		return JS, nil
	case "wasm":
		return Extism, nil
	}
	return "", fmt.Errorf("%w: no machine for extension %q", ErrUnknownType, ext)
}
