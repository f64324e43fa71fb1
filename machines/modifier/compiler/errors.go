package compiler

import "errors"

// ErrSyntax is wrapped by every error returned for malformed modifier text.
var ErrSyntax = errors.New("modifier syntax error")

var (
	ErrInvalidEventName = errors.New("invalid event name")
	ErrUnmatchedBracket = errors.New("unmatched bracket")
	ErrInvalidTest      = errors.New("invalid test")
	ErrUnexpectedInput  = errors.New("unexpected input")
)

// ErrUnknownName is returned in strict mode when a modifier names an operator,
// variable or method missing from the compiler's tables. It is wrapped
// together with the matching tables.ErrUnknown* error.
var ErrUnknownName = errors.New("modifier references an unknown name")
