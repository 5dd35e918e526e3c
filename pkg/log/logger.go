// Package log provides the structured logger shared by every swctl component.
package log

import (
	"context"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// Well-known field keys.
const (
	ComponentKey = "component"
	OperationKey = "operation"
	RouteKey     = "route"
	AppIDKey     = "app_id"
)

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
}

// Logger is the logging interface handed to every component.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	With(fields ...Field) Logger

	// WithContext adds the operation and route carried by ctx, if any.
	WithContext(ctx context.Context) Logger

	// WithComponent tags logs with a component name
	WithComponent(component string) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter turns an entry into bytes.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output is a destination for formatted entries.
type Output interface {
	Write(entry *Entry, formatted []byte) error
	Close() error
}

// Hook is called for every entry at one of its levels before formatting.
type Hook interface {
	Levels() []Level
	Fire(entry *Entry) error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

type contextKey string

const (
	operationCtxKey contextKey = OperationKey
	routeCtxKey     contextKey = RouteKey
)

// ContextWithOperation returns a context whose loggers are tagged with op.
func ContextWithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationCtxKey, op)
}

// ContextWithRoute returns a context whose loggers are tagged with route.
func ContextWithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeCtxKey, route)
}

// ContextFields extracts logging fields carried by ctx.
func ContextFields(ctx context.Context) Fields {
	fields := Fields{}
	if ctx == nil {
		return fields
	}
	if v, ok := ctx.Value(operationCtxKey).(string); ok && v != "" {
		fields[OperationKey] = v
	}
	if v, ok := ctx.Value(routeCtxKey).(string); ok && v != "" {
		fields[RouteKey] = v
	}
	return fields
}

var defaultLogger Logger = NewLogger(WithLevel(InfoLevel))

// SetDefaultLogger replaces the logger returned by GetDefaultLogger.
func SetDefaultLogger(logger Logger) {
	defaultLogger = logger
}

// GetDefaultLogger returns the process-wide fallback logger. Components use
// it only when no logger was injected.
func GetDefaultLogger() Logger {
	return defaultLogger
}

// NewLogger creates a new logger with the given options.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{
		level:     InfoLevel,
		fields:    Fields{},
		formatter: NewTextFormatter(),
	}

	for _, option := range options {
		option(logger)
	}

	if len(logger.outputs) == 0 {
		logger.outputs = append(logger.outputs, NewConsoleOutput())
	}

	return logger
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.level = level
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.formatter = formatter
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) {
		l.outputs = append(l.outputs, output)
	}
}

// WithHook adds a hook to the logger.
func WithHook(hook Hook) LoggerOption {
	return func(l *BaseLogger) {
		l.hooks = append(l.hooks, hook)
	}
}
