package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with the small Info/Warn/Error surface the screens use.
type Logger struct {
	file  *os.File
	entry *logrus.Entry
}

// NewLogger creates a logger writing JSON lines to filePath, or to stderr when filePath is empty.
func NewLogger(filePath, level string) (*Logger, error) {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})

	var file *os.File
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		base.SetOutput(f)
	} else {
		base.SetOutput(os.Stderr)
	}

	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			if file != nil {
				file.Close()
			}
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		base.SetLevel(lvl)
	}

	return &Logger{file: file, entry: logrus.NewEntry(base)}, nil
}

// NewNopLogger discards everything. Handy in tests.
func NewNopLogger() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{entry: logrus.NewEntry(base)}
}

// WithFields returns a child logger carrying the given fields on every line.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{file: l.file, entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithError attaches err under the "error" key.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{file: l.file, entry: l.entry.WithError(err)}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.entry.Debug(msg)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.entry.Info(msg)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.entry.Warn(msg)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.entry.Error(msg)
}

// Close closes the log file
func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}
