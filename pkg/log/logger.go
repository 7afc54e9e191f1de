package log

import "time"

// Logger provides structured logging capabilities.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// ContextLogger is implemented by loggers that can derive a child logger
// carrying extra fields.
type ContextLogger interface {
	Logger
	With(fields ...Field) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Uint64 creates a uint64 field.
func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// With returns a logger that adds fields to every message. Loggers that
// implement ContextLogger build the child themselves.
func With(l Logger, fields ...Field) Logger {
	if l == nil {
		return NoopLogger{}
	}
	if len(fields) == 0 {
		return l
	}
	if cl, ok := l.(ContextLogger); ok {
		return cl.With(fields...)
	}
	return &prefixed{next: l, fields: fields}
}

type prefixed struct {
	next   Logger
	fields []Field
}

func (p *prefixed) merge(fields []Field) []Field {
	out := make([]Field, 0, len(p.fields)+len(fields))
	out = append(out, p.fields...)
	return append(out, fields...)
}

func (p *prefixed) Debug(msg string, fields ...Field) { p.next.Debug(msg, p.merge(fields)...) }
func (p *prefixed) Info(msg string, fields ...Field)  { p.next.Info(msg, p.merge(fields)...) }
func (p *prefixed) Warn(msg string, fields ...Field)  { p.next.Warn(msg, p.merge(fields)...) }
func (p *prefixed) Error(msg string, fields ...Field) { p.next.Error(msg, p.merge(fields)...) }

func (p *prefixed) With(fields ...Field) Logger {
	return &prefixed{next: p.next, fields: p.merge(fields)}
}
