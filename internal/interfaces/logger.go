package interfaces

// Logger is a small, framework-agnostic logging interface. Implementations
// live outside the packages that consume it so any logger can be swapped in.
type Logger interface {
	// Debug logs a debug-level message. Debug output is suppressed unless
	// the configured verbosity allows it.
	Debug(msg string, fields ...Field)

	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning.
	Warn(msg string, fields ...Field)

	// Error logs an error. Errors are always emitted regardless of the
	// configured verbosity.
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields.
	With(fields ...Field) Logger
}

// Field is a key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}
