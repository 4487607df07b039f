// Package logging provides the structured logger used throughout filemeta.
// It wraps zerolog so call sites never import zerolog directly, mirroring
// the logging seam the teacher codebase keeps between its packages and the
// underlying logging library.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Level is filemeta's own logging level, independent of zerolog's.
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	DisabledLevel
)

func (l Level) toZerolog() zerolog.Level {
	switch l {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case DisabledLevel:
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// Logger wraps zerolog.Logger with the small surface filemeta's packages need.
type Logger struct {
	logger zerolog.Logger
}

// New builds a Logger at the given level writing to w.
func New(level Level, w io.Writer) *Logger {
	zl := zerolog.New(w).Level(level.toZerolog()).With().Timestamp().Logger()
	return &Logger{logger: zl}
}

// Nop returns a Logger that discards everything. Used as the Manager default
// so the library stays silent unless a caller opts in via WithLogger.
func Nop() *Logger {
	return New(DisabledLevel, io.Discard)
}

// Default returns a Logger at WarnLevel writing to stderr, a reasonable
// choice for a library embedded in a larger program.
func Default() *Logger {
	return New(WarnLevel, os.Stderr)
}

func (l *Logger) Trace() *zerolog.Event { return l.logger.Trace() }
func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// With starts a child-logger builder carrying additional context fields.
func (l *Logger) With() zerolog.Context { return l.logger.With() }
