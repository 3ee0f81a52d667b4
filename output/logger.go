package output

import "github.com/roach88/ocptv/internal/logging"

// Logger receives diagnostics about the emitter itself. It never sees the
// artifact stream.
type Logger = logging.Logger

// NewConsoleLogger returns a Logger writing human-readable records to stderr
// at the given level ("debug", "info", "warn" or "error").
func NewConsoleLogger(level string) Logger {
	return logging.New(logging.LevelFromString(level))
}
