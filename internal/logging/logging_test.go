package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestResolveLevel_ExplicitWins(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DEBUG", "")

	assert.Equal(t, LevelWarn, resolveLevel("warn"))
}

func TestResolveLevel_DebugEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	for _, v := range []string{"1", "true", "YES", "on"} {
		t.Setenv("DEBUG", v)
		assert.Equal(t, LevelDebug, resolveLevel(""), "DEBUG=%s", v)
	}

	t.Setenv("DEBUG", "0")
	assert.Equal(t, LevelError, resolveLevel(""))
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		assert.Less(t, levels[i], levels[i+1])
	}
}

func TestLogLevelZerologMapping(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, LevelDebug.zerolog())
	assert.Equal(t, zerolog.InfoLevel, LevelInfo.zerolog())
	assert.Equal(t, zerolog.WarnLevel, LevelWarn.zerolog())
	assert.Equal(t, zerolog.ErrorLevel, LevelError.zerolog())
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown(99)", LogLevel(99).String())
}

// TestLoggingFunctions tests that logging functions don't panic
func TestLoggingFunctions(t *testing.T) {
	assert.NotPanics(t, func() { Debug("test %s", "message") })
	assert.NotPanics(t, func() { Info("test %d", 1) })
	assert.NotPanics(t, func() { Warn("test") })
	assert.NotPanics(t, func() { Error("test %v", nil) })
	assert.NotPanics(t, func() { Printf("always") })

	assert.NotPanics(t, func() {
		l := WithComponent("test")
		l.Info().Str("key", "value").Msg("structured")
	})
}
