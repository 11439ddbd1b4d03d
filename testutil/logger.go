package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

// Logger records entries and forwards them to t.Log.
type Logger struct {
	t       testing.TB
	mu      sync.Mutex
	Entries []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger(t testing.TB) *Logger {
	return &Logger{t: t}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	entry := level + ": " + msg
	for _, a := range args {
		if err, ok := a.(error); ok {
			entry += fmt.Sprintf(" (%v)", err)
		}
	}
	l.mu.Lock()
	l.Entries = append(l.Entries, entry)
	l.mu.Unlock()
	if l.t != nil {
		l.t.Log(entry)
	}
}

// Count returns the number of recorded entries at `level`.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if len(e) > len(level) && e[:len(level)+1] == level+":" {
			n++
		}
	}
	return n
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	if l.t != nil {
		l.t.Fatal(msg)
	}
}
