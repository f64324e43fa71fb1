package risor

import "errors"

var ErrContentNil = errors.New("risor content is nil")
var ErrValidationFailed = errors.New("risor script validation error")
var ErrEvalFailed = errors.New("risor variable evaluation failed")
