// Package logger provides the shared zerolog logger for all pipeline components.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Options controls logger initialization.
type Options struct {
	Level   string // trace|debug|info|warn|error (default info)
	Console bool   // human-readable console output instead of JSON
	Out     io.Writer
}

// Init initializes the default logger. It is safe to call more than once;
// only the first call takes effect.
func Init(opts Options) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339

		out := opts.Out
		if out == nil {
			out = os.Stderr
		}
		if opts.Console {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		}

		defaultLogger = zerolog.New(out).Level(parseLevel(opts.Level)).With().Timestamp().Logger()
		defaultLogger.Debug().Msg("logger initialized")
	})
}

// Get returns the initialized default logger, initializing with defaults if needed.
func Get() zerolog.Logger {
	Init(Options{})
	return defaultLogger
}

// With returns a logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Info logs an informational message using the default logger.
func Info(msg string) {
	l := Get()
	l.Info().Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string) {
	l := Get()
	l.Warn().Msg(msg)
}

// Error logs an error with its message using the default logger.
func Error(msg string, err error) {
	l := Get()
	l.Error().Err(err).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string) {
	l := Get()
	l.Debug().Msg(msg)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
