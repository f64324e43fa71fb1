package tables

import "errors"

var (
	// ErrUnknownOperator is returned when a test names an operator that is not registered.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnknownVariable is returned when an identifier operand names an unregistered variable.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrUnknownMethod is returned when a descriptor names an unregistered method.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrInvalidEntry is returned when registering an entry with an empty name or a nil function.
	ErrInvalidEntry = errors.New("invalid table entry")

	// ErrEntryExists is returned by Add when a name is already registered.
	ErrEntryExists = errors.New("table entry already exists")
)
