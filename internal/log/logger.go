// Package log provides structured logging for mbuild.
//
// Every engine package accepts a Logger rather than writing to stdout or
// stderr directly; the CLI layer owns the concrete handler (output format,
// verbosity level) and installs it once via SetDefault at startup.
package log

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Logger is the interface every engine package logs through.
type Logger interface {
	// Debug logs internal state useful only for troubleshooting a build.
	Debug(msg string, args ...any)
	// Info logs operational context (phase starting, archive written).
	Info(msg string, args ...any)
	// Warn logs a recoverable condition (unverified source, skipped patch).
	Warn(msg string, args ...any)
	// Error logs a failure that aborts the current operation.
	Error(msg string, args ...any)
	// With returns a Logger carrying additional structured context.
	With(args ...any) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

func (s *slogLogger) log(level slog.Level, msg string, args ...any) {
	s.l.Log(context.Background(), level, msg, args...)
}

func (s *slogLogger) Debug(msg string, args ...any) { s.log(slog.LevelDebug, msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.log(slog.LevelInfo, msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.log(slog.LevelWarn, msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.log(slog.LevelError, msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

type noopLogger struct{}

// NewNoop returns a Logger that discards all output. Used as the zero value
// so packages remain safe to use before the CLI calls SetDefault (e.g. in
// tests, which exercise engine packages directly).
func NewNoop() Logger { return noopLogger{} }

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the global logger, or a noop logger if SetDefault has
// not been called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the global logger. Called once from cmd/mbuild's
// PersistentPreRun after the verbosity flags are parsed.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Counts tallies how many Warn/Error calls a Counting logger observed, so
// the CLI can print a "N warning(s), M error(s)" summary after a pipeline
// run even when --quiet suppressed the messages themselves.
type Counts struct {
	warnings int64
	errors   int64
}

func (c *Counts) Warnings() int64 { return atomic.LoadInt64(&c.warnings) }
func (c *Counts) Errors() int64   { return atomic.LoadInt64(&c.errors) }

type countingLogger struct {
	inner  Logger
	counts *Counts
}

// NewCounting wraps inner in a Logger that forwards every call unchanged
// but also increments shared counters on Warn/Error, returned as Counts.
func NewCounting(inner Logger) (Logger, *Counts) {
	c := &Counts{}
	return &countingLogger{inner: inner, counts: c}, c
}

func (c *countingLogger) Debug(msg string, args ...any) { c.inner.Debug(msg, args...) }
func (c *countingLogger) Info(msg string, args ...any)  { c.inner.Info(msg, args...) }

func (c *countingLogger) Warn(msg string, args ...any) {
	atomic.AddInt64(&c.counts.warnings, 1)
	c.inner.Warn(msg, args...)
}

func (c *countingLogger) Error(msg string, args ...any) {
	atomic.AddInt64(&c.counts.errors, 1)
	c.inner.Error(msg, args...)
}

func (c *countingLogger) With(args ...any) Logger {
	return &countingLogger{inner: c.inner.With(args...), counts: c.counts}
}
