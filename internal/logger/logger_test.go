package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	flags := log.Flags()
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prev)
		log.SetFlags(flags)
		SetLevel(LevelDebug)
	})
	return &buf
}

func TestLevelGatesOutput(t *testing.T) {
	buf := captureLog(t)
	SetLevel(LevelWarn)

	Debug("hidden", nil)
	Info("hidden", nil)
	Warn("shown", Fields{"seed": 7})
	Error("failed", nil, nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown {seed=7}")
	assert.Contains(t, out, "[ERROR] failed")
}

func TestFieldsAreSorted(t *testing.T) {
	assert.Equal(t, "{a=x, b=2, c=0.50}", formatFields(Fields{"c": 0.5, "a": "x", "b": 2}))
	assert.Empty(t, formatFields(nil))
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": LevelDebug, "": LevelInfo, "WARN": LevelWarn, "error": LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
