package log

import (
	"io"

	"github.com/kataras/golog"
)

// GologLogger implements Logger on top of kataras/golog. It is the logger the
// supportbot binaries install as the package default.
type GologLogger struct {
	logger *golog.Logger
	level  LogLevel
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{
		logger: logger,
		level:  LogLevelInfo,
	}
}

// NewServiceLogger builds a golog logger writing to out with the given
// prefix and level.
func NewServiceLogger(out io.Writer, prefix string, level LogLevel) *GologLogger {
	g := golog.New()
	if out != nil {
		g.SetOutput(out)
	}
	if prefix != "" {
		g.SetPrefix("[" + prefix + "] ")
	}
	l := NewGologLogger(g)
	l.SetLevel(level)
	return l
}

func (l *GologLogger) Debug(format string, v ...any) {
	if l.level <= LogLevelDebug {
		l.logger.Debugf(format, v...)
	}
}

func (l *GologLogger) Info(format string, v ...any) {
	if l.level <= LogLevelInfo {
		l.logger.Infof(format, v...)
	}
}

func (l *GologLogger) Warn(format string, v ...any) {
	if l.level <= LogLevelWarn {
		l.logger.Warnf(format, v...)
	}
}

func (l *GologLogger) Error(format string, v ...any) {
	if l.level <= LogLevelError {
		l.logger.Errorf(format, v...)
	}
}

var gologLevels = map[LogLevel]string{
	LogLevelDebug: "debug",
	LogLevelInfo:  "info",
	LogLevelWarn:  "warn",
	LogLevelError: "error",
	LogLevelNone:  "disable",
}

// SetLevel sets the level of the wrapper and of the golog instance.
func (l *GologLogger) SetLevel(level LogLevel) {
	l.level = level
	name, ok := gologLevels[level]
	if !ok {
		name = "info"
	}
	l.logger.SetLevel(name)
}

// GetLevel returns the current level.
func (l *GologLogger) GetLevel() LogLevel {
	return l.level
}
