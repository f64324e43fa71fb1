package evaluator

import "errors"

var (
	// ErrVariableFailed wraps an error returned by a variable resolver.
	ErrVariableFailed = errors.New("variable resolver failed")

	// ErrInvalidTest is returned for a directly built test whose operator and
	// operand disagree: an operator without an operand or the reverse.
	ErrInvalidTest = errors.New("invalid test")

	// ErrNilEvent is returned when evaluating against a nil event.
	ErrNilEvent = errors.New("event is nil")
)
