package logging

import (
	"context"
	"fmt"
	"maps"
	"strings"
)

// Level represents log levels
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < DebugLevel || l > FatalLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a level name ("debug", "info", ...) into a Level. The
// empty string selects InfoLevel.
func ParseLevel(name string) (Level, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "":
		return InfoLevel, nil
	case "WARNING":
		return WarnLevel, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", strings.ToLower(name))
}

// Field keys shared by the analysis packages so that text and JSON output
// can be filtered the same way.
const (
	KeyComponent = "component"
	KeyStage     = "stage"
	KeyFile      = "file"
)

// Fields represents structured logging fields
type Fields map[string]any

// Component returns the fields naming the package that emits a log line.
func Component(name string) Fields {
	return Fields{KeyComponent: name}
}

// With returns a copy of f extended with other. Later keys win.
func (f Fields) With(other Fields) Fields {
	out := make(Fields, len(f)+len(other))
	maps.Copy(out, f)
	maps.Copy(out, other)
	return out
}

// merge flattens the variadic field sets passed to a log call.
func merge(base Fields, extra []Fields) Fields {
	out := make(Fields, len(base))
	maps.Copy(out, base)
	for _, f := range extra {
		maps.Copy(out, f)
	}
	return out
}

// Logger is the logging interface every analysis package accepts.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	Fatal(err error, msg string, fields ...Fields)

	// WithFields returns a logger with preset fields
	WithFields(fields Fields) Logger

	// WithContext returns a logger carrying fields stored by ContextWithFields
	WithContext(ctx context.Context) Logger

	SetLevel(level Level)
}

type fieldsKey struct{}

// ContextWithFields attaches logging fields to ctx. Loggers pick them up in
// WithContext, which lets the watcher tag every line of one file's analysis.
func ContextWithFields(ctx context.Context, fields Fields) context.Context {
	existing, _ := FieldsFromContext(ctx)
	return context.WithValue(ctx, fieldsKey{}, existing.With(fields))
}

// FieldsFromContext returns the fields stored by ContextWithFields, if any.
func FieldsFromContext(ctx context.Context) (Fields, bool) {
	if ctx == nil {
		return nil, false
	}
	fields, ok := ctx.Value(fieldsKey{}).(Fields)
	return fields, ok
}

var globalLogger Logger = NewDefaultLogger()

// SetGlobalLogger sets the logger used by components constructed without
// one. A nil logger silences them.
func SetGlobalLogger(logger Logger) {
	if logger == nil {
		globalLogger = &NoOpLogger{}
	} else {
		globalLogger = logger
	}
}

// GetGlobalLogger returns the current global logger
func GetGlobalLogger() Logger {
	return globalLogger
}
