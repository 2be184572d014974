// Package logging wires the engine's structured logging on top of
// charmbracelet/log. Every thread logs through here directly: besides the
// main thread (M), the ring bridge logs overruns and underruns from the
// process thread (P) and audio callback (A), and an event queue built with
// a logger logs overflow from whichever thread pushes.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger is a thin, prefixed wrapper around a charmbracelet/log logger.
type Logger struct {
	l *log.Logger
}

// Options configures a new Logger.
type Options struct {
	Prefix string
	Level  log.Level
}

// New creates a Logger writing to stderr with the given prefix and level.
func New(opts Options) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
	})
	l.SetLevel(opts.Level)
	return &Logger{l: l}
}

// With returns a derived Logger that attaches the given key/value pairs to
// every subsequent line, mirroring charmbracelet/log's own With().
func (lg *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{l: lg.l.With(keyvals...)}
}

func (lg *Logger) Debug(msg string, keyvals ...interface{}) { lg.l.Debug(msg, keyvals...) }
func (lg *Logger) Info(msg string, keyvals ...interface{})  { lg.l.Info(msg, keyvals...) }
func (lg *Logger) Warn(msg string, keyvals ...interface{})  { lg.l.Warn(msg, keyvals...) }
func (lg *Logger) Error(msg string, keyvals ...interface{}) { lg.l.Error(msg, keyvals...) }

// Nop returns a Logger that discards everything, useful for tests that don't
// want log noise but still need a non-nil *Logger.
func Nop() *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{})
	l.SetLevel(log.FatalLevel + 1)
	return &Logger{l: l}
}
