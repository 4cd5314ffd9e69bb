package claudeflow

import "log/slog"

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// loggerFor returns the configured logger, or NopLogger.
func loggerFor(options *Options) *slog.Logger {
	if options == nil || options.Logger == nil {
		return NopLogger()
	}

	return options.Logger
}
