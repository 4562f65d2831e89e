// Package diag is the interpreter's diagnostic channel: the sink spec.md
// §4.7 falls back to when an uncaught exception has no dispatchable
// Thread object, and the general-purpose logger for class-init failures,
// stack-overflow reports, and CLI verbosity.
package diag

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Level controls verbosity, mirroring the teacher's DebugLevel tiers.
type Level int

const (
	LevelNone Level = iota
	LevelError
	LevelInfo
	LevelDebug
)

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return LevelNone
	}
}

// Logger is a small leveled logger writing to a configured io.Writer.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
}

// New constructs a Logger writing to w at the given level. A nil w
// defaults to os.Stderr.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{out: w, level: level}
}

func (l *Logger) write(tag, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339), tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil || l.level < LevelError {
		return
	}
	l.write("error", format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l == nil || l.level < LevelInfo {
		return
	}
	l.write("info", format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil || l.level < LevelDebug {
		return
	}
	l.write("debug", format, args...)
}

// UncaughtFallback implements the §4.7 fallback path: extract the
// exception class name and detail message and emit them, used when the
// thread has no java_thread_obj to dispatch to (or dispatch itself
// threw).
func (l *Logger) UncaughtFallback(className, detailMessage string) {
	l.write("uncaught", "Exception in thread: %s: %s", className, detailMessage)
}

// StackDepth formats a human-readable frame-depth diagnostic, e.g. for an
// -Xss overflow report.
func StackDepth(frames, limit int) string {
	return fmt.Sprintf("stack depth %s frames exceeded limit %s", humanize.Comma(int64(frames)), humanize.Comma(int64(limit)))
}
