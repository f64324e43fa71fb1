package helpers

import (
	"log/slog"
	"os"
)

// SetupLogger creates a properly configured logger for a component of the modifier engine.
// If the provided handler is nil, it creates a default handler with appropriate grouping.
//
// Parameters:
//   - handler: The slog.Handler to use, or nil for defaults
//   - component: The name of the component (e.g., "compiler", "dom")
//   - groupName: Optional additional group name within the component
//
// Returns:
//   - The configured handler
//   - A logger created from the handler
func SetupLogger(handler slog.Handler, component string, groupName string) (slog.Handler, *slog.Logger) {
	if handler == nil {
		defaultHandler := slog.NewTextHandler(os.Stderr, nil)
		handler = defaultHandler.WithGroup(component)
		defaultLogger := slog.New(handler)
		defaultLogger.Debug("Handler is nil, using the default logger configuration.")
	}

	var logger *slog.Logger
	if groupName != "" {
		logger = slog.New(handler.WithGroup(groupName))
	} else {
		logger = slog.New(handler)
	}

	return handler, logger
}

// LoggerOrDefault returns the logger when set, otherwise a logger built from handler.
// It is shared by the functional options of every component, which accept either a
// handler or a ready-made logger.
func LoggerOrDefault(
	logger *slog.Logger,
	handler slog.Handler,
	component string,
	groupName string,
) (slog.Handler, *slog.Logger) {
	if logger != nil {
		return logger.Handler(), logger
	}
	return SetupLogger(handler, component, groupName)
}
