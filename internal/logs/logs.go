// Package logs implements the small leveled-logging engine the rest of
// this repository's subsystem loggers are built on. It mirrors the
// contract the kaspad/btcd lineage's logger package expects of its
// backing "logs" package (Backend, per-subsystem Logger, Criticalf
// triggering process-level attention) without pulling in a generic
// third-party logging framework, since the teacher treats this as an
// internal facility rather than an external dependency.
package logs

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Level is a logging priority level.
type Level uint32

// Level constants, ordered from most to least verbose.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

var levelStrings = map[Level]string{
	LevelTrace:    "TRC",
	LevelDebug:    "DBG",
	LevelInfo:     "INF",
	LevelWarn:     "WRN",
	LevelError:    "ERR",
	LevelCritical: "CRT",
	LevelOff:      "OFF",
}

// String returns the short, fixed-width string representation of l.
func (l Level) String() string {
	if s, ok := levelStrings[l]; ok {
		return s
	}
	return "UNK"
}

// LevelFromString parses a case-insensitive level name, falling back
// to LevelInfo when the name is unrecognized.
func LevelFromString(s string) (Level, bool) {
	for lvl, str := range levelStrings {
		if asciiEqualFold(str, s) {
			return lvl, true
		}
	}
	switch s {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "critical", "fatal":
		return LevelCritical, true
	case "off":
		return LevelOff, true
	}
	return LevelInfo, false
}

func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// BackendWriter pairs an io.Writer with a predicate deciding whether a
// given level should be written to it, so a Backend can fan the same
// line out to stdout at every level and to an error log only above a
// threshold.
type BackendWriter struct {
	w        io.Writer
	accepts  func(Level) bool
}

// NewAllLevelsBackendWriter returns a BackendWriter that writes every level.
func NewAllLevelsBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{w: w, accepts: func(Level) bool { return true }}
}

// NewErrorBackendWriter returns a BackendWriter that only writes
// LevelError and LevelCritical lines.
func NewErrorBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{w: w, accepts: func(l Level) bool { return l >= LevelError }}
}

// Backend is the shared sink every subsystem Logger writes through.
type Backend struct {
	mu      sync.Mutex
	writers []*BackendWriter
	closed  bool
}

// NewBackend creates a Backend that fans writes out to writers.
func NewBackend(writers []*BackendWriter) *Backend {
	return &Backend{writers: writers}
}

// Close marks the backend closed; further writes are no-ops.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Backend) write(tag string, level Level, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s [%s] %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), level, tag, msg)
	line := buf.Bytes()
	for _, bw := range b.writers {
		if bw.accepts(level) {
			bw.w.Write(line)
		}
	}
}

// Logger returns a subsystem Logger bound to tag, writing through b.
func (b *Backend) Logger(tag string) *Logger {
	l := &Logger{tag: tag, backend: b}
	l.level.Store(uint32(LevelInfo))
	return l
}

// Logger is a single named subsystem's leveled writer.
type Logger struct {
	tag     string
	level   atomic.Uint32
	backend *Backend
}

// SetLevel changes the minimum level this logger will emit.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(uint32(level))
}

// Level returns the logger's current minimum level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// Backend returns the Backend this logger writes through.
func (l *Logger) Backend() *Backend {
	return l.backend
}

func (l *Logger) log(level Level, msg string) {
	if level < l.Level() {
		return
	}
	l.backend.write(l.tag, level, msg)
}

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.log(LevelTrace, fmt.Sprintf(format, args...)) }

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, fmt.Sprintf(format, args...)) }

// Criticalf logs at LevelCritical. Callers that treat this as fatal
// (see util/panics.Exit) are responsible for terminating the process.
func (l *Logger) Criticalf(format string, args ...interface{}) { l.log(LevelCritical, fmt.Sprintf(format, args...)) }

// Trace logs pre-formatted text at LevelTrace.
func (l *Logger) Trace(msg string) { l.log(LevelTrace, msg) }

// Info logs pre-formatted text at LevelInfo.
func (l *Logger) Info(msg string) { l.log(LevelInfo, msg) }

// Warn logs pre-formatted text at LevelWarn.
func (l *Logger) Warn(msg string) { l.log(LevelWarn, msg) }
