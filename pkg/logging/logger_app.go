package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	golog "github.com/fclairamb/go-log"
)

// AppLogger implements the go-log.Logger interface
type AppLogger struct {
	level   LogLevel
	logger  *log.Logger
	writer  *RotatingWriter // nil if logging to stdout
	context []interface{}
}

// NewAppLogger creates a new application logger. An empty logPath logs to stdout.
func NewAppLogger(logPath string, level LogLevel, maxSize int64) (*AppLogger, error) {
	if logPath == "" {
		return NewAppLoggerTo(os.Stdout, level), nil
	}

	rw, err := NewRotatingWriter(logPath, maxSize, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("creating rotating writer: %w", err)
	}

	l := NewAppLoggerTo(rw, level)
	l.writer = rw
	return l, nil
}

// NewAppLoggerTo creates an application logger writing to w.
func NewAppLoggerTo(w io.Writer, level LogLevel) *AppLogger {
	return &AppLogger{
		level:  level,
		logger: log.New(w, "", 0), // No flags, we'll handle formatting ourselves
	}
}

func (l *AppLogger) shouldLog(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[l.level]
}

func (l *AppLogger) log(level LogLevel, message string, keyvals ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	all := keyvals
	if len(l.context) > 0 {
		all = append(append([]interface{}{}, l.context...), keyvals...)
	}

	line := fmt.Sprintf("%s %s: %s",
		time.Now().UTC().Format("2006-01-02 15:04:05 -0700"), level, message)
	if kv := formatPairs(all); len(kv) > 0 {
		line += " " + strings.Join(kv, " ")
	}
	l.logger.Print(line)
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}

	str := fmt.Sprintf("%v", v)
	str = strings.ReplaceAll(str, "\n", " ")
	str = strings.ReplaceAll(str, "\r", " ")
	str = strings.ReplaceAll(str, "\t", " ")
	// Collapse multiple spaces into one
	return strings.Join(strings.Fields(str), " ")
}

// Debug implements go-log.Logger
func (l *AppLogger) Debug(message string, keyvals ...interface{}) {
	l.log(LogLevelDebug, message, keyvals...)
}

// Info implements go-log.Logger
func (l *AppLogger) Info(message string, keyvals ...interface{}) {
	l.log(LogLevelInfo, message, keyvals...)
}

// Warn implements go-log.Logger
func (l *AppLogger) Warn(message string, keyvals ...interface{}) {
	l.log(LogLevelWarn, message, keyvals...)
}

// Error implements go-log.Logger
func (l *AppLogger) Error(message string, keyvals ...interface{}) {
	l.log(LogLevelError, message, keyvals...)
}

// Panic implements go-log.Logger
func (l *AppLogger) Panic(message string, keyvals ...interface{}) {
	l.log(LogLevelPanic, message, keyvals...)
}

// With returns a logger that prefixes every entry with keyvals.
// The returned logger shares the writer of its parent.
func (l *AppLogger) With(keyvals ...interface{}) golog.Logger {
	child := *l
	child.context = append(append([]interface{}{}, l.context...), keyvals...)
	return &child
}

// IsDebug returns true if the logger is at debug level
func (l *AppLogger) IsDebug() bool {
	return l.level == LogLevelDebug
}

// Close closes the logger and stops background rotation
func (l *AppLogger) Close() error {
	if l.writer != nil {
		return l.writer.Close()
	}
	return nil
}
