package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

// Config captures options for configuring the base logger.
type Config struct {
	Level   string    // optional level ("debug", "info", ...); falls back to DEBUG/LOG_LEVEL
	Format  string    // "console" or "json"; falls back to LOG_FORMAT, then console
	Output  io.Writer // defaults to os.Stderr
	Service string    // attached to every entry
}

var (
	currentLevel LogLevel
	base         zerolog.Logger
	configOnce   sync.Once
)

// Configure initializes the base logger exactly once. Later calls are no-ops,
// so it must run before the first log line if a non-default setup is wanted.
func Configure(cfg Config) {
	configOnce.Do(func() {
		currentLevel = resolveLevel(cfg.Level)
		zerolog.SetGlobalLevel(currentLevel.zerolog())
		zerolog.TimeFieldFormat = time.RFC3339

		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}

		format := cfg.Format
		if format == "" {
			format = os.Getenv("LOG_FORMAT")
		}
		if !strings.EqualFold(format, "json") {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006/01/02 15:04:05", NoColor: true}
		}

		service := cfg.Service
		if service == "" {
			service = "media-converter"
		}

		base = zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	})
}

// resolveLevel picks the level from an explicit value, DEBUG or LOG_LEVEL.
func resolveLevel(explicit string) LogLevel {
	if explicit != "" {
		return ParseLevel(explicit)
	}

	if debug := os.Getenv("DEBUG"); debug != "" {
		switch strings.ToLower(debug) {
		case "1", "true", "yes", "on":
			return LevelDebug
		}
	}

	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel converts a level name to a LogLevel. Unknown names map to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the configured base logger.
func Logger() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	Configure(Config{})
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	l := Logger()
	l.Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	l := Logger()
	l.Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	l := Logger()
	l.Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	l := Logger()
	l.Error().Msgf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	l := Logger()
	l.Fatal().Msgf(format, args...)
}

// Printf logs a message that should always print, regardless of level.
func Printf(format string, args ...interface{}) {
	l := Logger()
	l.Log().Msgf(format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
