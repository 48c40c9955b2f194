// Copyright © 2024 The ELPS authors

package logtest

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTB struct {
	testing.TB
	lines []string
}

func (r *recordingTB) Log(args ...any) {
	for _, a := range args {
		r.lines = append(r.lines, a.(string))
	}
}

func TestLoggerSplitsLines(t *testing.T) {
	rec := &recordingTB{TB: t}
	l := NewLogger(rec)

	n, err := l.Write([]byte("one\ntwo\nthr"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, []string{"one", "two"}, rec.lines)

	_, _ = l.Write([]byte("ee\n"))
	assert.Equal(t, []string{"one", "two", "three"}, rec.lines)

	_, _ = l.Write([]byte("tail"))
	l.Flush()
	assert.Equal(t, []string{"one", "two", "three", "tail"}, rec.lines)
	l.Flush()
	assert.Len(t, rec.lines, 4)
}

func TestCaptureRestoresLogger(t *testing.T) {
	before := log.GetLevel()

	t.Run("capture", func(t *testing.T) {
		hook := Capture(t, log.DebugLevel)
		log.WithField("k", "v").Debug("hello")
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, "hello", hook.LastEntry().Message)
		assert.Equal(t, "v", hook.LastEntry().Data["k"])
		assert.Equal(t, log.DebugLevel, log.GetLevel())
	})

	assert.Equal(t, before, log.GetLevel())
	assert.Empty(t, log.StandardLogger().Hooks[log.DebugLevel])
}
