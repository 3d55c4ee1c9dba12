package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jmoralesv/enlace/internal/interfaces"
)

// Re-export the shared types so most packages only import logging.
type Logger = interfaces.Logger
type Field = interfaces.Field

// Level is the minimum severity a StdoutLogger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdoutLogger prints JSON lines and implements interfaces.Logger.
//
// The verbosity gate replaces the role-conditional console logging the
// backend's web client used: elevated roles get debug output, everyone else
// gets info and above. It is a debugging convenience, not access control.
type StdoutLogger struct {
	component string
	min       Level
	out       io.Writer
	with      []Field
}

// NewStdoutLogger creates a StdoutLogger emitting entries at min and above.
// component is optional and is included as a persistent field.
func NewStdoutLogger(component string, min Level) *StdoutLogger {
	return &StdoutLogger{component: component, min: min, out: os.Stdout}
}

// NewWriterLogger is NewStdoutLogger with an explicit destination, for tests.
func NewWriterLogger(component string, min Level, out io.Writer) *StdoutLogger {
	return &StdoutLogger{component: component, min: min, out: out}
}

func (s *StdoutLogger) log(level Level, name string, msg string, fields ...Field) {
	if level < s.min {
		return
	}
	type outEntry struct {
		Level     string         `json:"level"`
		Msg       string         `json:"msg"`
		Component string         `json:"component,omitempty"`
		Time      string         `json:"time"`
		Fields    map[string]any `json:"fields,omitempty"`
	}
	m := make(map[string]any)
	for _, f := range s.with {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	entry := outEntry{
		Level:     name,
		Msg:       msg,
		Component: s.component,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Fields:    m,
	}
	enc, err := json.Marshal(entry)
	if err != nil {
		// Fallback plain formatting if JSON marshal fails
		fmt.Fprintf(s.out, "%s %s %v\n", name, msg, m)
		return
	}
	fmt.Fprintln(s.out, string(enc))
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) {
	s.log(LevelDebug, "debug", msg, fields...)
}

func (s *StdoutLogger) Info(msg string, fields ...Field) {
	s.log(LevelInfo, "info", msg, fields...)
}

func (s *StdoutLogger) Warn(msg string, fields ...Field) {
	s.log(LevelWarn, "warn", msg, fields...)
}

func (s *StdoutLogger) Error(msg string, fields ...Field) {
	s.log(LevelError, "error", msg, fields...)
}

func (s *StdoutLogger) With(fields ...Field) Logger {
	child := &StdoutLogger{component: s.component, min: s.min, out: s.out}
	child.with = append(append(child.with, s.with...), fields...)
	// A component field overrides the child's component name instead of
	// being duplicated in the payload.
	kept := child.with[:0]
	for _, f := range child.with {
		if f.Key == "component" {
			if str, ok := f.Value.(string); ok {
				child.component = str
				continue
			}
		}
		kept = append(kept, f)
	}
	child.with = kept
	return child
}
