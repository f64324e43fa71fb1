package loader

import "errors"

var (
	ErrSchemeUnsupported  = errors.New("unsupported scheme")
	ErrScriptNotAvailable = errors.New("script not available")
	ErrInputEmpty         = errors.New("input is empty")

	// ErrImportFailed wraps errors returned while importing a module.
	ErrImportFailed = errors.New("import failed")
)
