package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel is a logging severity. Messages below a logger's level are
// dropped.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	// LogLevelNone disables logging.
	LogLevelNone
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "NONE"}

// String returns the upper-case level name.
func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("UNKNOWN(%d)", l)
}

// ParseLogLevel converts a configuration string such as "debug" or "WARN"
// into a LogLevel. The empty string is Info.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none", "off", "disable":
		return LogLevelNone, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger is the logging contract shared by every faqgraph component.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// DefaultLogger writes "[faqgraph] <time> [LEVEL] message" lines with the
// standard library logger.
type DefaultLogger struct {
	out   *log.Logger
	level LogLevel
}

// NewDefaultLogger creates a logger writing to stderr.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewCustomLogger(os.Stderr, level)
}

// NewCustomLogger creates a logger writing to out.
func NewCustomLogger(out io.Writer, level LogLevel) *DefaultLogger {
	return &DefaultLogger{out: log.New(out, "[faqgraph] ", log.LstdFlags), level: level}
}

func (l *DefaultLogger) emit(level LogLevel, format string, v []any) {
	if level < l.level {
		return
	}
	l.out.Printf("["+level.String()+"] "+format, v...)
}

func (l *DefaultLogger) Debug(format string, v ...any) { l.emit(LogLevelDebug, format, v) }
func (l *DefaultLogger) Info(format string, v ...any)  { l.emit(LogLevelInfo, format, v) }
func (l *DefaultLogger) Warn(format string, v ...any)  { l.emit(LogLevelWarn, format, v) }
func (l *DefaultLogger) Error(format string, v ...any) { l.emit(LogLevelError, format, v) }

// NoOpLogger discards everything. Tests use it to keep output quiet.
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(format string, v ...any) {}
func (l *NoOpLogger) Info(format string, v ...any)  {}
func (l *NoOpLogger) Warn(format string, v ...any)  {}
func (l *NoOpLogger) Error(format string, v ...any) {}

var (
	mu            sync.RWMutex
	defaultLogger Logger = NewDefaultLogger(LogLevelInfo)
)

// SetDefaultLogger replaces the package-level logger. nil silences it.
func SetDefaultLogger(logger Logger) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
}

// GetDefaultLogger returns the package-level logger.
func GetDefaultLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetLogLevel installs a stderr DefaultLogger at level.
func SetLogLevel(level LogLevel) {
	SetDefaultLogger(NewDefaultLogger(level))
}

// OrDefault returns l, or the package-level logger when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return GetDefaultLogger()
	}
	return l
}

func Debug(format string, v ...any) { GetDefaultLogger().Debug(format, v...) }
func Info(format string, v ...any)  { GetDefaultLogger().Info(format, v...) }
func Warn(format string, v ...any)  { GetDefaultLogger().Warn(format, v...) }
func Error(format string, v ...any) { GetDefaultLogger().Error(format, v...) }
