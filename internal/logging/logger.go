// Package logging provides a structured logging wrapper around charmbracelet/log.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// programName prefixes user-facing messages.
const programName = "buildtest"

//nolint:gochecknoglobals // Process-wide default logger.
var defaultLogger atomic.Pointer[log.Logger]

// New creates a stderr logger at the given level.
func New(level string) *log.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter creates a logger at the given level writing to w.
func NewWithWriter(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{})
	logger.SetLevel(ParseLevel(level))
	return logger
}

// NewInteractive creates an info-level logger for user-facing messages such
// as the watch mode banner.
func NewInteractive() *log.Logger {
	logger := New("info")
	logger.SetPrefix(programName)
	return logger
}

// ParseLevel maps a level name to a log level. "warning" is accepted for
// "warn"; unknown names map to info.
func ParseLevel(name string) log.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	level, err := log.ParseLevel(name)
	if err != nil || name == "" {
		return log.InfoLevel
	}
	return level
}

// Default returns the process-wide logger, creating an info-level one on
// first use.
func Default() *log.Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	defaultLogger.CompareAndSwap(nil, New("info"))
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger. A nil logger is ignored.
func SetDefault(logger *log.Logger) {
	if logger != nil {
		defaultLogger.Store(logger)
	}
}

// SetLevel changes the level of the process-wide logger; --debug uses it.
func SetLevel(level string) {
	Default().SetLevel(ParseLevel(level))
}
