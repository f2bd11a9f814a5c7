package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger represents application logger.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing text records of at least level to stderr.
// Stdout is left to the interactive prompt.
func New(level int) *Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a Logger writing to w.
func NewWithWriter(w io.Writer, level int) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.Level(level)})),
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewWithWriter(io.Discard, 0)
}
