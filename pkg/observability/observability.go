// Package observability defines the structured logger used across the
// viewer, with a stdlib log backed implementation.
package observability

import (
	"fmt"
	"log"
	"strings"
)

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type Field interface {
	Key() string
	Value() interface{}
}

type field struct {
	key string
	val interface{}
}

func (f field) Key() string        { return f.key }
func (f field) Value() interface{} { return f.val }

func String(key, value string) Field          { return field{key, value} }
func Int(key string, value int) Field         { return field{key, value} }
func Int64(key string, value int64) Field     { return field{key, value} }
func Float(key string, value float64) Field   { return field{key, value} }
func Any(key string, value interface{}) Field { return field{key, value} }
func Error(key string, err error) Field       { return field{key, err} }

type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (NopLogger) With(...Field) Logger   { return NopLogger{} }

// StdLogger writes one line per entry through a *log.Logger:
//
//	INFO render complete viewer=3f2a... page=2 scale=1.25
type StdLogger struct {
	out    *log.Logger
	debug  bool
	fields []Field
}

// NewStdLogger returns a logger writing to out. Debug entries are dropped
// unless debug is set.
func NewStdLogger(out *log.Logger, debug bool) *StdLogger {
	return &StdLogger{out: out, debug: debug}
}

func (l *StdLogger) Debug(msg string, fields ...Field) {
	if l.debug {
		l.write("DEBUG", msg, fields)
	}
}
func (l *StdLogger) Info(msg string, fields ...Field)  { l.write("INFO", msg, fields) }
func (l *StdLogger) Warn(msg string, fields ...Field)  { l.write("WARN", msg, fields) }
func (l *StdLogger) Error(msg string, fields ...Field) { l.write("ERROR", msg, fields) }

func (l *StdLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &StdLogger{out: l.out, debug: l.debug, fields: merged}
}

func (l *StdLogger) write(level, msg string, fields []Field) {
	var sb strings.Builder
	sb.WriteString(level)
	sb.WriteByte(' ')
	sb.WriteString(msg)
	for _, group := range [][]Field{l.fields, fields} {
		for _, f := range group {
			fmt.Fprintf(&sb, " %s=%v", f.Key(), f.Value())
		}
	}
	l.out.Print(sb.String())
}
