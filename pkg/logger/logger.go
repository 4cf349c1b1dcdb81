package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"page-reader/internal/domain"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// AppLogger implements the domain.Logger interface
type AppLogger struct {
	level  LogLevel
	logger *log.Logger
	// fields are prepended to every entry written by this logger.
	fields []interface{}
}

// NewLogger creates a new logger instance writing to stdout
func NewLogger(levelStr string) *AppLogger {
	return NewLoggerWithWriter(levelStr, os.Stdout)
}

// NewLoggerWithWriter creates a logger writing to w
func NewLoggerWithWriter(levelStr string, w io.Writer) *AppLogger {
	return &AppLogger{
		level:  parseLogLevel(levelStr),
		logger: log.New(w, "", 0),
	}
}

// With returns a logger that adds the given key/value pairs to every entry.
func (l *AppLogger) With(fields ...interface{}) domain.Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &AppLogger{
		level:  l.level,
		logger: l.logger,
		fields: merged,
	}
}

// Info logs an info message
func (l *AppLogger) Info(msg string, fields ...interface{}) {
	if l.level <= INFO {
		l.log("INFO", msg, fields...)
	}
}

// Error logs an error message
func (l *AppLogger) Error(msg string, err error, fields ...interface{}) {
	if l.level <= ERROR {
		allFields := append([]interface{}{"error", err}, fields...)
		l.log("ERROR", msg, allFields...)
	}
}

// Debug logs a debug message
func (l *AppLogger) Debug(msg string, fields ...interface{}) {
	if l.level <= DEBUG {
		l.log("DEBUG", msg, fields...)
	}
}

// Warn logs a warning message
func (l *AppLogger) Warn(msg string, fields ...interface{}) {
	if l.level <= WARN {
		l.log("WARN", msg, fields...)
	}
}

func (l *AppLogger) log(level, msg string, fields ...interface{}) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	logMsg := fmt.Sprintf("[%s] %s: %s", timestamp, level, msg)

	all := append(append([]interface{}{}, l.fields...), fields...)
	if len(all) > 0 {
		fieldStrs := make([]string, 0, len(all)/2)
		for i := 0; i+1 < len(all); i += 2 {
			fieldStrs = append(fieldStrs, fmt.Sprintf("%v=%v", all[i], all[i+1]))
		}
		if len(fieldStrs) > 0 {
			logMsg += " " + strings.Join(fieldStrs, " ")
		}
	}

	l.logger.Println(logMsg)
}

// parseLogLevel converts string log level to LogLevel enum
func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Nop returns a logger that discards everything.
func Nop() domain.Logger {
	return NewLoggerWithWriter("error", io.Discard)
}

// With scopes any domain.Logger with fields. Loggers that cannot carry
// fields are wrapped.
func With(l domain.Logger, fields ...interface{}) domain.Logger {
	if s, ok := l.(interface {
		With(...interface{}) domain.Logger
	}); ok {
		return s.With(fields...)
	}
	return &scoped{next: l, fields: fields}
}

type scoped struct {
	next   domain.Logger
	fields []interface{}
}

func (s *scoped) merge(fields []interface{}) []interface{} {
	return append(append([]interface{}{}, s.fields...), fields...)
}

func (s *scoped) Info(msg string, fields ...interface{})  { s.next.Info(msg, s.merge(fields)...) }
func (s *scoped) Debug(msg string, fields ...interface{}) { s.next.Debug(msg, s.merge(fields)...) }
func (s *scoped) Warn(msg string, fields ...interface{})  { s.next.Warn(msg, s.merge(fields)...) }
func (s *scoped) Error(msg string, err error, fields ...interface{}) {
	s.next.Error(msg, err, s.merge(fields)...)
}
