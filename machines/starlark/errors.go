package starlark

import "errors"

var ErrContentNil = errors.New("starlark content is nil")
var ErrValidationFailed = errors.New("starlark script validation error")
var ErrInitFailed = errors.New("starlark module initialization failed")
var ErrCallFailed = errors.New("starlark variable call failed")
