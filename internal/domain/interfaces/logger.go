// Package interfaces defines core domain contracts.
//
//nolint:revive // Package name 'interfaces' is intentional for domain layer
package interfaces

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger defines the interface for structured logging
type Logger interface {
	// Debug logs debug-level messages
	Debug(msg string, fields ...Field)

	// Info logs informational messages
	Info(msg string, fields ...Field)

	// Warn logs warning messages
	Warn(msg string, fields ...Field)

	// Error logs error messages
	Error(msg string, fields ...Field)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field (convenience function)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Level orders log severities
type Level int

// Log levels
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a level name to a Level, defaulting to info
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
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

// NoOpLogger is a logger that does nothing (useful for tests)
type NoOpLogger struct{}

// Debug does nothing (no-op implementation)
func (n *NoOpLogger) Debug(_ string, _ ...Field) {}

// Info does nothing (no-op implementation)
func (n *NoOpLogger) Info(_ string, _ ...Field) {}

// Warn does nothing (no-op implementation)
func (n *NoOpLogger) Warn(_ string, _ ...Field) {}

// Error does nothing (no-op implementation)
func (n *NoOpLogger) Error(_ string, _ ...Field) {}

// WriterLogger writes key=value lines to an io.Writer
type WriterLogger struct {
	mu    sync.Mutex
	out   io.Writer
	min   Level
	clock func() time.Time
}

// NewStderrLogger creates a logger writing to stderr at the given minimum level
func NewStderrLogger(min Level) *WriterLogger {
	return NewWriterLogger(os.Stderr, min)
}

// NewWriterLogger creates a logger writing to w at the given minimum level
func NewWriterLogger(w io.Writer, min Level) *WriterLogger {
	return &WriterLogger{out: w, min: min, clock: time.Now}
}

// Debug logs debug-level messages
func (l *WriterLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, "DEBUG", msg, fields)
}

// Info logs informational messages
func (l *WriterLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, "INFO", msg, fields)
}

// Warn logs warning messages
func (l *WriterLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, "WARN", msg, fields)
}

func (l *WriterLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, "ERROR", msg, fields)
}

func (l *WriterLogger) log(level Level, name, msg string, fields []Field) {
	if level < l.min {
		return
	}

	var b strings.Builder
	b.WriteString(l.clock().Format(time.RFC3339))
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, b.String())
}
