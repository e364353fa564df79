package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AccessLogger records one line per chat command
type AccessLogger interface {
	// LogCommand logs a dispatched protocol command
	LogCommand(operation string, user string, status string, details ...interface{})
	// LogSession logs connection lifecycle events
	LogSession(event string, session string, details ...interface{})
}

type accessLogger struct {
	logger *log.Logger
}

// NewAccessLogger creates a new access logger. An empty logPath discards entries.
func NewAccessLogger(logPath string) (AccessLogger, error) {
	var writer io.Writer

	if logPath == "" {
		writer = io.Discard
	} else {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, fmt.Errorf("creating access log directory: %w", err)
		}
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening access log file: %w", err)
		}
		writer = f
	}

	return NewAccessLoggerTo(writer), nil
}

// NewAccessLoggerTo creates an access logger writing to w.
func NewAccessLoggerTo(w io.Writer) AccessLogger {
	return &accessLogger{
		logger: log.New(w, "", 0), // No flags, we'll handle formatting ourselves
	}
}

func (l *accessLogger) LogCommand(operation string, user string, status string, details ...interface{}) {
	parts := []string{fmt.Sprintf("op=%s", formatValue(operation))}
	if user != "" {
		parts = append(parts, fmt.Sprintf("user=%s", formatValue(user)))
	}
	parts = append(parts, fmt.Sprintf("status=%s", formatValue(status)))
	parts = append(parts, formatPairs(details)...)

	l.write(parts)
}

func (l *accessLogger) LogSession(event string, session string, details ...interface{}) {
	parts := []string{
		fmt.Sprintf("event=%s", formatValue(event)),
		fmt.Sprintf("session=%s", formatValue(session)),
	}
	parts = append(parts, formatPairs(details)...)

	l.write(parts)
}

func (l *accessLogger) write(parts []string) {
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 -0700")
	l.logger.Printf("%s %s", timestamp, strings.Join(parts, " "))
}
