package log

import (
	"io"
	stdlog "log"
	"strings"
)

// ToStdLogger wraps logger in a standard library *log.Logger whose lines are
// logged at level. Useful for libraries that only accept *log.Logger.
func ToStdLogger(logger Logger, level Level) *stdlog.Logger {
	return stdlog.New(StdLogWriter(logger, level), "", 0)
}

// StdLogWriter returns an io.Writer that logs each write at level.
func StdLogWriter(logger Logger, level Level) io.Writer {
	return &leveledWriter{logger: logger, level: level}
}

type leveledWriter struct {
	logger Logger
	level  Level
}

func (w *leveledWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")

	switch w.level {
	case DebugLevel:
		w.logger.Debug(msg)
	case WarnLevel:
		w.logger.Warn(msg)
	case ErrorLevel, FatalLevel:
		w.logger.Error(msg)
	default:
		w.logger.Info(msg)
	}

	return len(p), nil
}
