// Copyright © 2024 The ELPS authors

// Package logtest sends logrus output to the test log and records the
// emitted entries so tests can assert on them.
package logtest

import (
	"bytes"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Logger is an io.Writer that forwards complete lines to t.Log.
type Logger struct {
	t   testing.TB
	buf []byte
}

var _ io.Writer = (*Logger)(nil)

func NewLogger(t testing.TB) *Logger {
	return &Logger{
		t: t,
	}
}

func (l *Logger) Write(b []byte) (int, error) {
	l.buf = append(l.buf, b...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			return len(b), nil
		}
		l.t.Log(string(l.buf[:i])) // slice does not include \n
		l.buf = l.buf[i+1:]
	}
}

func (l *Logger) Flush() {
	if len(l.buf) == 0 {
		return
	}
	l.t.Log(string(l.buf))
	l.buf = nil
}

// Capture points the standard logrus logger at t's log with the given
// level and returns a hook recording every entry. The logger's output,
// level and hooks are restored when the test ends.
func Capture(t testing.TB, level log.Level) *test.Hook {
	t.Helper()
	std := log.StandardLogger()
	out := std.Out
	lvl := std.GetLevel()
	hooks := std.ReplaceHooks(make(log.LevelHooks))

	w := NewLogger(t)
	std.SetOutput(w)
	std.SetLevel(level)
	hook := test.NewLocal(std)

	t.Cleanup(func() {
		w.Flush()
		std.SetOutput(out)
		std.SetLevel(lvl)
		std.ReplaceHooks(hooks)
	})
	return hook
}
