package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TestEntry is a captured log entry.
type TestEntry struct {
	Level   Level
	Message string
	Fields  []Field
}

// testSink is shared by a TestLogger and every logger derived from it so
// entries written through With/WithComponent children are visible to the
// parent's assertions.
type testSink struct {
	mu      sync.Mutex
	entries []TestEntry
}

// TestLogger captures log entries in memory for assertions in unit tests.
type TestLogger struct {
	sink   *testSink
	fields []Field
	level  Level
}

// NewTestLogger creates a TestLogger that records debug and above.
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testSink{}, level: DebugLevel}
}

// GetEntries returns a copy of the captured entries.
func (l *TestLogger) GetEntries() []TestEntry {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	out := make([]TestEntry, len(l.sink.entries))
	copy(out, l.sink.entries)
	return out
}

// ClearEntries drops everything captured so far.
func (l *TestLogger) ClearEntries() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = nil
}

func (l *TestLogger) Debug(msg string, fields ...Field) { l.record(DebugLevel, msg, fields) }
func (l *TestLogger) Info(msg string, fields ...Field)  { l.record(InfoLevel, msg, fields) }
func (l *TestLogger) Warn(msg string, fields ...Field)  { l.record(WarnLevel, msg, fields) }
func (l *TestLogger) Error(msg string, fields ...Field) { l.record(ErrorLevel, msg, fields) }
func (l *TestLogger) Fatal(msg string, fields ...Field) { l.record(FatalLevel, msg, fields) }

func (l *TestLogger) Debugf(format string, args ...interface{}) {
	l.record(DebugLevel, fmt.Sprintf(format, args...), nil)
}

func (l *TestLogger) Infof(format string, args ...interface{}) {
	l.record(InfoLevel, fmt.Sprintf(format, args...), nil)
}

func (l *TestLogger) Warnf(format string, args ...interface{}) {
	l.record(WarnLevel, fmt.Sprintf(format, args...), nil)
}

func (l *TestLogger) Errorf(format string, args ...interface{}) {
	l.record(ErrorLevel, fmt.Sprintf(format, args...), nil)
}

func (l *TestLogger) Fatalf(format string, args ...interface{}) {
	l.record(FatalLevel, fmt.Sprintf(format, args...), nil)
}

func (l *TestLogger) record(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.entries = append(l.sink.entries, TestEntry{Level: level, Message: msg, Fields: all})
}

// WithField returns a child logger with a field added.
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.With(Any(key, value))
}

// WithFields returns a child logger with fields added.
func (l *TestLogger) WithFields(fields Fields) Logger {
	extra := make([]Field, 0, len(fields))
	for k, v := range fields {
		extra = append(extra, Any(k, v))
	}
	return l.With(extra...)
}

// WithError returns a child logger with an error field.
func (l *TestLogger) WithError(err error) Logger {
	return l.With(Err(err))
}

// With returns a child logger sharing the same sink.
func (l *TestLogger) With(fields ...Field) Logger {
	child := &TestLogger{sink: l.sink, level: l.level}
	child.fields = make([]Field, 0, len(l.fields)+len(fields))
	child.fields = append(child.fields, l.fields...)
	child.fields = append(child.fields, fields...)
	return child
}

func (l *TestLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(ContextFields(ctx))
}

func (l *TestLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

func (l *TestLogger) SetLevel(level Level) { l.level = level }
func (l *TestLogger) GetLevel() Level      { return l.level }

// AssertLogged reports whether an entry at level containing msg was captured.
func (l *TestLogger) AssertLogged(level Level, msg string) bool {
	for _, e := range l.GetEntries() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}

// AssertLoggedWithField reports whether an entry at level containing msg and
// carrying key=value was captured. Values are compared by their %v form.
func (l *TestLogger) AssertLoggedWithField(level Level, msg, key string, value interface{}) bool {
	want := fmt.Sprintf("%v", value)
	for _, e := range l.GetEntries() {
		if e.Level != level || !strings.Contains(e.Message, msg) {
			continue
		}
		for _, f := range e.Fields {
			if f.Key == key && fmt.Sprintf("%v", f.Value) == want {
				return true
			}
		}
	}
	return false
}
