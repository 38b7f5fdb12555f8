package utils

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides structured, leveled logging throughout the application.
// Messages keep the printf style with a "[component]" prefix; zerolog does the writing.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a new Logger writing human readable lines to stdout.
func NewLogger() *Logger {
	return NewLoggerWith(os.Stdout, "info", "console")
}

// NewLoggerWith creates a Logger for the given writer, level and format ("console" or "json").
// An unknown level falls back to info.
func NewLoggerWith(w io.Writer, level, format string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05"}
	}

	return &Logger{zl: zerolog.New(out).Level(lvl).With().Timestamp().Logger()}
}

// NopLogger returns a Logger that discards everything. Handy in tests.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Zerolog exposes the underlying logger for components that log structured events directly.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
