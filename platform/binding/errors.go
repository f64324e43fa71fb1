package binding

import "errors"

var (
	ErrNilTarget     = errors.New("target is nil")
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidSpec   = errors.New("invalid modifier")
)
