package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(level Level) (*Logger, *observer.ObservedLogs) {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))
	core, logs := observer.New(atomicLevel)
	return &Logger{zapLogger: zap.New(core), zapLevel: atomicLevel}, logs
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"Error":   LevelError,
		"fatal":   LevelFatal,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
	assert.Equal(t, "level(9)", Level(9).String())
}

func TestLevelGating(t *testing.T) {
	l, logs := observed(LevelWarn)
	l.Info("dropped")
	l.Log(LevelDebug, "dropped")
	l.Warn("kept")
	l.Log(LevelError, "kept too")
	assert.Equal(t, 2, logs.Len())

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())
	l.Debug("now visible")
	assert.Equal(t, 3, logs.Len())
}

func TestWithCarriesFieldsAndLevel(t *testing.T) {
	l, logs := observed(LevelInfo)
	child := l.With(String("component", "world"))
	child.Info("spawned",
		Int("count", 3),
		Uint64("entity", 7),
		Float64("x", 1.5),
		Bool("ai", true),
		Duration("took", time.Millisecond),
		Error(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "world", ctx["component"])
	assert.Equal(t, int64(3), ctx["count"])
	assert.Equal(t, uint64(7), ctx["entity"])
	assert.Equal(t, 1.5, ctx["x"])
	assert.Equal(t, true, ctx["ai"])
	assert.Equal(t, time.Millisecond, ctx["took"])
	assert.Equal(t, "boom", ctx["error"])

	l.SetLevel(LevelError)
	child.Info("shared level")
	assert.Equal(t, 1, logs.Len())
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l, _ := observed(LevelInfo)
	assert.Same(t, l, OrNop(l))

	nop := NewNop()
	nop.Info("discarded")
	assert.Equal(t, zapcore.FatalLevel, nop.zapLevel.Level())
}
