package starlark

import (
	"fmt"

	"go.starlark.net/syntax"

	starlarkLib "go.starlark.net/starlark"
)

// compile parses and compiles the module source into a Starlark program
func compile(name string, content []byte, opts *syntax.FileOptions) (*starlarkLib.Program, error) {
	if content == nil {
		return nil, ErrContentNil
	}

	if opts == nil {
		opts = &syntax.FileOptions{}
	}

	predeclared := standardModules()

	f, err := opts.Parse(name, content, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	prog, err := starlarkLib.FileProgram(f, predeclared.Has)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	return prog, nil
}
