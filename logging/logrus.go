package logging

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus entry to the library Logger interface. The CLI
// uses it for machine-readable (JSON) log output.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps an existing logrus logger.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	if l == nil {
		l = logrus.New()
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewJSONLogger creates a logrus-backed logger that writes JSON lines to w.
func NewJSONLogger(w io.Writer, level Level) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	ll := NewLogrusLogger(l)
	ll.SetLevel(level)
	return ll
}

func toLogrusFields(fields []Fields) logrus.Fields {
	return logrus.Fields(merge(nil, fields))
}

func (l *LogrusLogger) Debug(msg string, fields ...Fields) {
	l.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields ...Fields) {
	l.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields ...Fields) {
	l.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (l *LogrusLogger) Error(err error, msg string, fields ...Fields) {
	l.entry.WithFields(toLogrusFields(fields)).WithError(err).Error(msg)
}

// Fatal logs at error severity and leaves process termination to the caller.
func (l *LogrusLogger) Fatal(err error, msg string, fields ...Fields) {
	l.entry.WithFields(toLogrusFields(fields)).WithError(err).WithField("fatal", true).Error(msg)
}

func (l *LogrusLogger) WithFields(fields Fields) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return l.WithFields(fields)
	}
	return l
}

func (l *LogrusLogger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel, FatalLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
