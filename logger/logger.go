// Package logger defines the logging surface used by go-ttypair.
//
// Every package logs through the Logger interface, so applications can plug in their
// own backend. The default backend is log/slog with a JSON handler; setting
// ENV=development switches it to a human-readable console handler.
//
// Log Levels:
//
//   - DebugLevel: per-operation detail such as blocked reads and drain waits.
//   - InfoLevel: descriptor lifecycle and transfer progress.
//   - WarnLevel: recoverable oddities, e.g. readcond on a plain descriptor.
//   - ErrorLevel: OS failures and contract violations.
//   - FatalLevel: logs, then terminates the process.
package logger

import "strings"

// Level indicates the logging severity level.
type Level = int8

// LogLevel is kept as an alias of Level for callers that prefer the longer name.
type LogLevel = Level

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review.
	WarnLevel
	// ErrorLevel logs are high-priority.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// Logger is the structured logging interface used across go-ttypair.
//
// keysAndValues are alternating keys and values, as accepted by log/slog.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at error severity and then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)
	// With returns a child logger that adds keyValues to every record.
	// The parent is not affected.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level.
	Level() Level
	// SetLevel sets the minimum enabled level. Children created by With share it.
	SetLevel(level Level)
}

// ParseLevel maps "debug", "info", "warn", "error" and "fatal" to a Level.
// Unknown names map to InfoLevel and ok is false.
func ParseLevel(name string) (level Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, true
	case "info", "":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	case "fatal":
		return FatalLevel, true
	default:
		return InfoLevel, false
	}
}
