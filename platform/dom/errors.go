package dom

import "errors"

var (
	ErrParseFailed        = errors.New("failed to parse HTML")
	ErrInvalidSelector    = errors.New("invalid selector")
	ErrNilEvent           = errors.New("event is nil")
	ErrNilHandler         = errors.New("handler is nil")
	ErrEmptyEventType     = errors.New("event type is empty")
	ErrAlreadyDispatching = errors.New("event is already being dispatched")
	ErrListenerFailed     = errors.New("listener failed")
)
