package core

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger provides leveled logging capabilities.
// This abstraction allows swapping logging implementations.
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Errorf logs a formatted error message
	Errorf(format string, args ...interface{})

	// Warn logs a warning message
	Warn(args ...interface{})

	// Warnf logs a formatted warning message
	Warnf(format string, args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Infof logs a formatted informational message
	Infof(format string, args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// Debugf logs a formatted debug message
	Debugf(format string, args ...interface{})

	// With returns a child logger that attaches keyvals to every entry.
	With(keyvals ...interface{}) Logger
}

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "text" (default), "json" or "logfmt".
	Format string
	// Prefix is printed before every message.
	Prefix string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// charmLogger implements Logger on top of charmbracelet/log.
type charmLogger struct {
	l *log.Logger
}

// NewDefaultLogger creates an info-level text logger writing to stderr.
func NewDefaultLogger() Logger {
	l, _ := NewLogger(LoggerOptions{})
	return l
}

// NewLogger creates a Logger from options. An unknown level or format is an error.
func NewLogger(opts LoggerOptions) (Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := log.InfoLevel
	if opts.Level != "" {
		lvl, err := log.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = lvl
	}

	var formatter log.Formatter
	switch strings.ToLower(opts.Format) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	l := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		Formatter:       formatter,
	})
	return &charmLogger{l: l}, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	l, _ := NewLogger(LoggerOptions{Output: io.Discard, Level: "error"})
	return l
}

func (c *charmLogger) Error(args ...interface{}) { c.l.Error(fmt.Sprint(args...)) }

func (c *charmLogger) Errorf(format string, args ...interface{}) { c.l.Errorf(format, args...) }

func (c *charmLogger) Warn(args ...interface{}) { c.l.Warn(fmt.Sprint(args...)) }

func (c *charmLogger) Warnf(format string, args ...interface{}) { c.l.Warnf(format, args...) }

func (c *charmLogger) Info(args ...interface{}) { c.l.Info(fmt.Sprint(args...)) }

func (c *charmLogger) Infof(format string, args ...interface{}) { c.l.Infof(format, args...) }

func (c *charmLogger) Debug(args ...interface{}) { c.l.Debug(fmt.Sprint(args...)) }

func (c *charmLogger) Debugf(format string, args ...interface{}) { c.l.Debugf(format, args...) }

func (c *charmLogger) With(keyvals ...interface{}) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}
