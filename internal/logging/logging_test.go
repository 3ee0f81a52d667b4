package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", DefaultLevel},
		{"verbose", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, LevelFromString(tt.input))
		})
	}
}

func TestDevNullLogger(t *testing.T) {
	logger := NewDevNullLogger()
	logger.Debug("debug", "k", "v")
	logger.Info("info", "k", "v")
	logger.Warn("warn", "k", "v")
	logger.Error("error", "k", "v")
	assert.IsType(t, &DevNullLogger{}, logger.With("k", "v"))
}

func TestSlogger_WritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug)

	logger.With("run", "r").Info("artifact emitted", "seq", 3)

	out := buf.String()
	assert.Contains(t, out, "artifact emitted")
	assert.Contains(t, out, "run=r")
	assert.Contains(t, out, "seq=3")
	assert.NotContains(t, out, "\x1b[", "colour must be off for non-terminal writers")
}

func TestSlogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestZap_ForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZap(zap.New(core))

	logger.With("run", "r").Error("close failed", "scope", "step0")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "close failed", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, map[string]any{"run": "r", "scope": "step0"}, entries[0].ContextMap())
}

func TestZap_NilIsNop(t *testing.T) {
	logger := NewZap(nil)
	logger.Info("nothing")
	assert.NoError(t, logger.Sync())
}

func TestContextCarriesLogger(t *testing.T) {
	logger := NewWithWriter(&bytes.Buffer{}, LevelInfo)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, Ctx(ctx))
	assert.IsType(t, &DevNullLogger{}, Ctx(context.Background()))
}
