package log

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// BaseLogger implements Logger on top of a formatter, outputs and hooks.
type BaseLogger struct {
	level     Level
	fields    Fields
	formatter Formatter
	outputs   []Output
	hooks     []Hook
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.logFields(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.logFields(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.logFields(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.logFields(ErrorLevel, msg, fields) }

// Fatal logs at fatal level and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.logFields(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) Debugf(format string, args ...interface{}) { l.logf(DebugLevel, format, args) }
func (l *BaseLogger) Infof(format string, args ...interface{})  { l.logf(InfoLevel, format, args) }
func (l *BaseLogger) Warnf(format string, args ...interface{})  { l.logf(WarnLevel, format, args) }
func (l *BaseLogger) Errorf(format string, args ...interface{}) { l.logf(ErrorLevel, format, args) }

// Fatalf logs a formatted message at fatal level and exits the process.
func (l *BaseLogger) Fatalf(format string, args ...interface{}) {
	l.logf(FatalLevel, format, args)
	os.Exit(1)
}

// WithField returns a new logger with the field added to it.
func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields returns a new logger with the fields added to it.
func (l *BaseLogger) WithFields(fields Fields) Logger {
	if len(fields) == 0 {
		return l
	}
	child := l.clone()
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

// With returns a new logger carrying fields.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	child := l.clone()
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	return child
}

// WithError returns a new logger with the error added as a field.
func (l *BaseLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(ContextFields(ctx))
}

func (l *BaseLogger) WithComponent(component string) Logger {
	return l.WithField(ComponentKey, component)
}

func (l *BaseLogger) SetLevel(level Level) { l.level = level }
func (l *BaseLogger) GetLevel() Level      { return l.level }

// Close closes every output.
func (l *BaseLogger) Close() error {
	var firstErr error
	for _, out := range l.outputs {
		if err := out.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *BaseLogger) clone() *BaseLogger {
	child := &BaseLogger{
		level:     l.level,
		formatter: l.formatter,
		outputs:   l.outputs,
		hooks:     l.hooks,
		fields:    make(Fields, len(l.fields)),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	return child
}

func (l *BaseLogger) logf(level Level, format string, args []interface{}) {
	if level < l.level {
		return
	}
	l.write(level, fmt.Sprintf(format, args...), l.entryFields(nil))
}

func (l *BaseLogger) logFields(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}
	l.write(level, msg, l.entryFields(fields))
}

func (l *BaseLogger) entryFields(fields []Field) Fields {
	out := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		out[k] = v
	}
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (l *BaseLogger) write(level Level, msg string, fields Fields) {
	entry := &Entry{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Timestamp: time.Now(),
		Caller:    caller(4),
	}

	for _, hook := range l.hooks {
		if !hookFiresAt(hook, level) {
			continue
		}
		if err := hook.Fire(entry); err != nil {
			if err == ErrEntryDropped {
				return
			}
			fmt.Fprintf(os.Stderr, "log hook failed: %v\n", err)
		}
	}

	formatted, err := l.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log format failed: %v\n", err)
		return
	}

	for _, out := range l.outputs {
		if err := out.Write(entry, formatted); err != nil {
			fmt.Fprintf(os.Stderr, "log output failed: %v\n", err)
		}
	}
}

func hookFiresAt(hook Hook, level Level) bool {
	for _, hl := range hook.Levels() {
		if hl == level {
			return true
		}
	}
	return false
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}
