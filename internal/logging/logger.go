// Package logging provides the leveled, structured logger shared by every
// component. It is a thin layer over zerolog that keeps call sites terse:
//
//	logger.Info("Cache miss", logging.WithField("domain", "projects"))
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Fields is a set of structured key/value pairs attached to one log line.
type Fields map[string]interface{}

// WithField builds a single-entry Fields.
func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

// WithFields copies m into a Fields value.
func WithFields(m map[string]interface{}) Fields {
	f := make(Fields, len(m))
	for k, v := range m {
		f[k] = v
	}
	return f
}

// Logger writes structured log lines. A nil *Logger discards everything.
type Logger struct {
	zl zerolog.Logger
}

// New creates a JSON logger writing to stderr.
func New(level Level) *Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewConsole creates a human-readable logger writing to stderr.
func NewConsole(level Level) *Logger {
	return NewWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}, level)
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer, level Level) *Logger {
	zl := zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
// Anything else is LevelInfo.
func ParseLevel(s string) Level {
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

func (l Level) zerolog() zerolog.Level {
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

// With returns a child logger that adds fields to every line.
func (l *Logger) With(fields ...Fields) *Logger {
	if l == nil {
		return nil
	}
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Fields(map[string]interface{}(f))
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	write(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	write(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	write(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	if l == nil {
		return
	}
	write(l.zl.Error(), msg, fields)
}

func write(ev *zerolog.Event, msg string, fields []Fields) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = ev.Fields(map[string]interface{}(f))
	}
	ev.Msg(msg)
}
