package calendar

import "errors"

var (
	ErrUnknownCalendar = errors.New("unknown calendar")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNoConvergence   = errors.New("date approximation did not converge")
	ErrInvalidCalendar = errors.New("invalid calendar")
)
