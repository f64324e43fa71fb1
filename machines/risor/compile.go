package risor

import (
	"context"
	"errors"
	"fmt"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"
	risorErrors "github.com/risor-io/risor/errz"
	risorParser "github.com/risor-io/risor/parser"
)

// Globals injected into every evaluation.
const (
	globalEvent    = "event"
	globalVariable = "variable"
)

// compile parses the script and compiles it with the builtin global names plus
// the globals injected at evaluation time.
func compile(ctx context.Context, content []byte) (*risorCompiler.Code, error) {
	if content == nil {
		return nil, ErrContentNil
	}

	ast, err := risorParser.Parse(ctx, string(content))
	if err != nil {
		errMsg := err.Error()
		var friendlyErr risorErrors.FriendlyError
		if errors.As(err, &friendlyErr) {
			errMsg = friendlyErr.FriendlyErrorMessage()
		}
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, errMsg)
	}

	globalNames := append(risorLib.NewConfig().GlobalNames(), globalEvent, globalVariable)
	bc, err := risorCompiler.Compile(ast, risorCompiler.WithGlobalNames(globalNames))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return bc, nil
}
