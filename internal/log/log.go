// Package log wraps the standard library logger with named loggers and
// Warn/Debug levels.
//
// Usage:
//
//	l := log.ForService("indexer")
//	l.Infof("✓ Indexed %d documents", n)
//	l.Warnf("skipping %s: %v", name, err)
//	l.Debugf("raw record: %s", raw) // only printed when debug is enabled
//
// The package name collides with the standard library "log"; alias one of
// them when both are needed.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
	"sync/atomic"
)

// Logger is a named logger.
type Logger struct {
	name string
	std  *stdlog.Logger
}

// writerHolder keeps atomic.Value storing a single concrete type.
type writerHolder struct {
	w io.Writer
}

var (
	globalDebug  atomic.Bool
	serviceDebug sync.Map // map[string]*atomic.Bool
	loggers      sync.Map // map[string]*Logger
	outputWriter atomic.Value
)

func init() {
	outputWriter.Store(writerHolder{w: os.Stderr})
}

// ForService returns (and memoizes) the logger for name.
func ForService(name string) *Logger {
	if name == "" {
		name = "sitesearch"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	l := &Logger{
		name: name,
		std:  stdlog.New(proxyWriter{}, "", stdlog.LstdFlags),
	}
	actual, _ := loggers.LoadOrStore(name, l)
	return actual.(*Logger)
}

// SetOutput redirects every logger. Intended for tests and for keeping
// stdout clean when it carries a protocol.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	outputWriter.Store(writerHolder{w: w})
}

// SetGlobalDebug toggles debug output for all services.
func SetGlobalDebug(enabled bool) {
	globalDebug.Store(enabled)
}

// EnableDebugFor turns on debug output for a single service.
func EnableDebugFor(name string) {
	v, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	v.(*atomic.Bool).Store(true)
}

// DisableDebugFor turns off a per-service debug override.
func DisableDebugFor(name string) {
	if v, ok := serviceDebug.Load(name); ok {
		v.(*atomic.Bool).Store(false)
	}
}

func debugEnabled(name string) bool {
	if globalDebug.Load() {
		return true
	}
	if v, ok := serviceDebug.Load(name); ok {
		return v.(*atomic.Bool).Load()
	}
	return false
}

// proxyWriter resolves the current output on every write so SetOutput
// applies to loggers created earlier.
type proxyWriter struct{}

func (proxyWriter) Write(p []byte) (int, error) {
	return outputWriter.Load().(writerHolder).w.Write(p)
}

func (l *Logger) output(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if level != "" {
		msg = level + " " + msg
	}
	_ = l.std.Output(3, fmt.Sprintf("[%s>] %s", l.name, msg))
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.output("", format, args...)
}

// Warnf logs a warning.
func (l *Logger) Warnf(format string, args ...any) {
	l.output("Warning:", format, args...)
}

// Errorf logs an error. It does not exit.
func (l *Logger) Errorf(format string, args ...any) {
	l.output("Error:", format, args...)
}

// Fatalf logs an error and exits with status 1.
func (l *Logger) Fatalf(format string, args ...any) {
	l.output("Error:", format, args...)
	os.Exit(1)
}

// Debugf logs only when debug is enabled globally or for this service.
func (l *Logger) Debugf(format string, args ...any) {
	if !debugEnabled(l.name) {
		return
	}
	l.output("DEBUG", format, args...)
}

// Name returns the service name.
func (l *Logger) Name() string {
	return l.name
}
