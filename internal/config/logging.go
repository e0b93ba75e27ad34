package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

// ParseLogLevel parses a log level string. Unknown values mean error.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) logrus() logrus.Level {
	if l == LogLevelDebug {
		return logrus.DebugLevel
	}
	return logrus.ErrorLevel
}

// Logger writes leveled log lines to a file through logrus.
type Logger struct {
	mu    sync.Mutex
	level LogLevel
	file  *os.File
	log   *logrus.Logger
}

// NewLogger creates a logger appending to filePath. With LogLevelOff or an
// empty path nothing is written and no file is created.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	if level == LogLevelOff || filePath == "" {
		return &Logger{level: level}, nil
	}

	filePath = ExpandHome(filePath)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return newLogger(level, f, f), nil
}

// NewWriterLogger creates a logger writing to w. Useful for stderr logging.
func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	return newLogger(level, w, nil)
}

func newLogger(level LogLevel, w io.Writer, f *os.File) *Logger {
	lg := logrus.New()
	lg.SetOutput(w)
	lg.SetLevel(level.logrus())
	lg.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return &Logger{level: level, file: f, log: lg}
}

// SetJSONOutput switches between logrus' JSON and text formatters.
func (l *Logger) SetJSONOutput(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.log == nil {
		return
	}
	if enabled {
		l.log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
		return
	}
	l.log.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.log = nil
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = level
	if l.log != nil {
		l.log.SetLevel(level.logrus())
	}
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.logf(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.logf(LogLevelError, format, args...)
}

// Writer returns an io.Writer that logs each write at level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

func (l *Logger) logf(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.log == nil || l.level == LogLevelOff || level > l.level {
		return
	}
	if level == LogLevelDebug {
		l.log.Debugf(format, args...)
		return
	}
	l.log.Errorf(format, args...)
}

type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.logger.logf(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff}
}
