// internal/logging/logging.go

package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger writes leveled lines to an append-only log file.
type Logger struct {
	file   *os.File
	logger *log.Logger
}

// New opens (or creates) the log file at path.
func New(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &Logger{
		file:   file,
		logger: log.New(file, "", log.LstdFlags|log.Lshortfile),
	}, nil
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return &Logger{logger: log.New(discardWriter{}, "", 0)}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Infof logs an informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.logger.SetPrefix("INFO: ")
	l.logger.Output(2, fmt.Sprintf(format, args...))
}

// Warnf logs a warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.SetPrefix("WARN: ")
	l.logger.Output(2, fmt.Sprintf(format, args...))
}

// Errorf logs an error.
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.SetPrefix("ERROR: ")
	l.logger.Output(2, fmt.Sprintf(format, args...))
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
