// Package logging is the structured logging facade used by the emitter and
// the command-line tools. Log records never go to the artifact stream.
package logging

import (
	"context"
	"strings"
)

// Logger is a leveled, structured logger taking alternating key-value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)

	// With returns a Logger that adds the given key-value pairs to every record.
	With(keysAndValues ...any) Logger
}

type contextKey string

const loggerKey contextKey = "ocptv.logger"

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger carried by ctx, or a DevNullLogger.
func Ctx(ctx context.Context) Logger {
	if ctx == nil {
		return NewDevNullLogger()
	}
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return NewDevNullLogger()
}

// LevelFromString parses debug, info, warn or error, case-insensitively.
// Anything else yields DefaultLevel.
func LevelFromString(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return DefaultLevel
	}
}
