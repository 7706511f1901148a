package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

var levelColors = map[Level]string{
	WarnLevel:  colorYellow,
	ErrorLevel: colorRed,
	FatalLevel: colorBold + colorRed,
}

// DefaultLogger writes key=value lines through the standard log package.
// Debug and Info go to the info writer; Warn, Error and Fatal to the error
// writer.
type DefaultLogger struct {
	info      *log.Logger
	errs      *log.Logger
	level     Level
	fields    Fields
	useColors bool
	exit      func(int)
}

// NewDefaultLogger logs to stdout and stderr, colored when stdout is a
// terminal. Fatal exits the process.
func NewDefaultLogger() *DefaultLogger {
	l := NewDefaultLoggerWithWriters(os.Stdout, os.Stderr)
	l.useColors = isTerminal(os.Stdout)
	l.exit = os.Exit
	return l
}

// NewDefaultLoggerWithWriters creates an uncolored logger writing to the
// given writers. Fatal does not exit unless SetExitFunc is called.
func NewDefaultLoggerWithWriters(info, errs io.Writer) *DefaultLogger {
	return &DefaultLogger{
		info:   log.New(info, "", log.LstdFlags),
		errs:   log.New(errs, "", log.LstdFlags),
		level:  InfoLevel,
		fields: Fields{},
		exit:   func(int) {},
	}
}

// SetExitFunc replaces the function Fatal calls after logging.
func (d *DefaultLogger) SetExitFunc(exit func(int)) {
	d.exit = exit
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (d *DefaultLogger) format(level Level, err error, msg string, fields Fields) string {
	var b strings.Builder
	b.WriteString("[" + level.String() + "] " + msg)
	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}

	if color, ok := levelColors[level]; ok && d.useColors {
		return color + b.String() + colorReset
	}
	return b.String()
}

func (d *DefaultLogger) emit(level Level, err error, msg string, extra []Fields) {
	if level < d.level {
		return
	}

	line := d.format(level, err, msg, merge(d.fields, extra))
	if level >= WarnLevel {
		d.errs.Println(line)
	} else {
		d.info.Println(line)
	}
	if level == FatalLevel {
		d.exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) { d.emit(DebugLevel, nil, msg, fields) }
func (d *DefaultLogger) Info(msg string, fields ...Fields)  { d.emit(InfoLevel, nil, msg, fields) }
func (d *DefaultLogger) Warn(msg string, fields ...Fields)  { d.emit(WarnLevel, nil, msg, fields) }

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.emit(ErrorLevel, err, msg, fields)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.emit(FatalLevel, err, msg, fields)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	child := *d
	child.fields = d.fields.With(fields)
	return &child
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level = level
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
