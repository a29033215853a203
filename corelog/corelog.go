// Package corelog adapts structured logging into go-freethread, following
// eventloop/logging.go's shape: a small Logger interface plus a LogEntry
// value type, a no-op implementation for when logging is disabled, and a
// concrete implementation backed by a real third-party structured logger
// (github.com/rs/zerolog, the same backend library the teacher's sibling
// package logiface-zerolog wires underneath logiface) rather than the
// hand-rolled JSON/pretty formatting eventloop's own DefaultLogger does.
//
// Every go-freethread component accepts a Logger (possibly nil) and logs
// through Emit, which skips a nil Logger and calls IsEnabled before
// handing the Entry to Log. The Entry itself is built at the call site,
// before that level check.
package corelog

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors eventloop's LogLevel enum.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Entry is a structured log record, grounded on eventloop.LogEntry: a
// level, a component/category tag, a message, an optional error, and a
// free-form field map for call-site context (thread id, interrupt depth,
// monitor name, etc).
type Entry struct {
	Level     Level
	Component string
	Message   string
	Err       error
	Fields    map[string]any
	Timestamp time.Time
}

// Logger is the structured logging interface every go-freethread package
// depends on. A nil Logger is valid everywhere and behaves as IsEnabled
// always returning false.
type Logger interface {
	Log(Entry)
	IsEnabled(Level) bool
	// With returns a child Logger with the given fields merged into
	// every subsequent entry, used to bind a thread id or monitor name
	// once rather than on every call site.
	With(fields map[string]any) Logger
}

// nopLogger discards everything; used whenever a caller passes nil.
type nopLogger struct{}

func (nopLogger) Log(Entry)                    {}
func (nopLogger) IsEnabled(Level) bool          { return false }
func (nopLogger) With(map[string]any) Logger    { return nopLogger{} }

// Nop returns the shared no-op Logger.
func Nop() Logger { return nopLogger{} }

// Emit logs entry via l if l is non-nil and the level is enabled; this is
// the helper every go-freethread package calls so call sites never need a
// nil check of their own.
func Emit(l Logger, e Entry) {
	if l == nil || !l.IsEnabled(e.Level) {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l.Log(e)
}

// ZerologLogger implements Logger on top of github.com/rs/zerolog.
type ZerologLogger struct {
	level  atomic.Int32
	zl     zerolog.Logger
	fields map[string]any
}

// New constructs a ZerologLogger writing JSON lines to w (os.Stderr if
// nil) at the given minimum level.
func New(w *os.File, level Level) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	l := &ZerologLogger{zl: zerolog.New(w).With().Timestamp().Logger()}
	l.level.Store(int32(level))
	return l
}

func (l *ZerologLogger) IsEnabled(level Level) bool {
	return int32(level) >= l.level.Load()
}

func (l *ZerologLogger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *ZerologLogger) With(fields map[string]any) Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := &ZerologLogger{zl: l.zl, fields: merged}
	child.level.Store(l.level.Load())
	return child
}

func (l *ZerologLogger) Log(e Entry) {
	if !l.IsEnabled(e.Level) {
		return
	}
	ev := l.zl.WithLevel(e.Level.zerolog())
	if e.Component != "" {
		ev = ev.Str("component", e.Component)
	}
	for k, v := range l.fields {
		ev = ev.Interface(k, v)
	}
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg(e.Message)
}
