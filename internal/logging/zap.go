package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap adapts a zap logger to Logger.
type Zap struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps l. A nil l yields a no-op logger.
func NewZap(l *zap.Logger) *Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return &Zap{sugar: l.Sugar()}
}

// NewZapJSON builds a production zap logger that writes JSON records to
// stderr at the given level.
func NewZapJSON(level Level) (*Zap, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

func zapLevel(level Level) zapcore.Level {
	switch {
	case level <= LevelDebug:
		return zapcore.DebugLevel
	case level <= LevelInfo:
		return zapcore.InfoLevel
	case level <= LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func (z *Zap) Debug(msg string, keysAndValues ...any) { z.sugar.Debugw(msg, keysAndValues...) }
func (z *Zap) Info(msg string, keysAndValues ...any)  { z.sugar.Infow(msg, keysAndValues...) }
func (z *Zap) Warn(msg string, keysAndValues ...any)  { z.sugar.Warnw(msg, keysAndValues...) }
func (z *Zap) Error(msg string, keysAndValues ...any) { z.sugar.Errorw(msg, keysAndValues...) }

func (z *Zap) With(keysAndValues ...any) Logger {
	return &Zap{sugar: z.sugar.With(keysAndValues...)}
}

// Sync flushes buffered records.
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}
