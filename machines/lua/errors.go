package lua

import "errors"

var ErrContentNil = errors.New("lua content is nil")
var ErrInitFailed = errors.New("lua module initialization failed")
var ErrCallFailed = errors.New("lua variable call failed")
var ErrModuleClosed = errors.New("lua module is closed")
