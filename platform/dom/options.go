package dom

import (
	"fmt"
	"log/slog"
)

// Option configures a Document.
type Option func(*Document) error

// WithLogHandler sets the log handler of the document.
func WithLogHandler(handler slog.Handler) Option {
	return func(d *Document) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		d.logHandler = handler
		d.logger = nil
		return nil
	}
}

// WithLogger sets the logger of the document.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		d.logger = logger
		d.logHandler = nil
		return nil
	}
}
