package extism

import "errors"

var (
	ErrContentNil       = errors.New("wasm content is nil")
	ErrValidationFailed = errors.New("wasm module validation error")
	ErrNoEntrypoints    = errors.New("wasm modules must list their entrypoints")
	ErrCallFailed       = errors.New("wasm variable call failed")
)
