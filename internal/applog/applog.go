// Package applog wraps github.com/charmbracelet/log into a per-component
// structured logger, following the *Logger-embeds-*log.Logger shape of
// kdeps's pkg/logging. Every internal package gets its own Logger via New so
// log lines carry the component name as their prefix instead of being routed
// through fmt.Println.
package applog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a component-scoped structured logger.
type Logger struct {
	*log.Logger
}

// New returns a Logger writing to w with the given component name attached
// to every line.
func New(w *os.File, component string) *Logger {
	base := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          component,
	})
	base.SetLevel(log.InfoLevel)
	return &Logger{Logger: base}
}

// SetLevelName parses a level name ("debug", "info", "warn", "error") and
// applies it, falling back to InfoLevel for anything unrecognized.
func (l *Logger) SetLevelName(name string) {
	level, err := log.ParseLevel(name)
	if err != nil {
		level = log.InfoLevel
	}
	l.SetLevel(level)
}
