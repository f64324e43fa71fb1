package starlark

import (
	"maps"

	starlarkJSON "go.starlark.net/lib/json"
	starlarkMath "go.starlark.net/lib/math"
	starlarkTime "go.starlark.net/lib/time"
	starlarkLib "go.starlark.net/starlark"
)

// Namespaces predeclared for every module, both when resolving names at
// compile time and when the module body runs.
const (
	namespaceJSON = "json" // Provides JSON encoding/decoding functions
	namespaceMath = "math" // Provides mathematical functions and constants
	namespaceTime = "time" // Provides time-related functions
)

// standardModules returns a copy of the Starlark universe with the json, math
// and time modules added.
func standardModules() starlarkLib.StringDict {
	universe := maps.Clone(starlarkLib.Universe)
	universe[namespaceJSON] = starlarkJSON.Module
	universe[namespaceMath] = starlarkMath.Module
	universe[namespaceTime] = starlarkTime.Module

	return universe
}
