package js

import "errors"

var ErrContentNil = errors.New("javascript content is nil")
var ErrValidationFailed = errors.New("javascript validation error")
var ErrInitFailed = errors.New("javascript module initialization failed")
var ErrCallFailed = errors.New("javascript variable call failed")
