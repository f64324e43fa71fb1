package data

import "errors"

// ErrInvalidProperties is returned when a property document cannot back a Provider.
var ErrInvalidProperties = errors.New("invalid event properties")
