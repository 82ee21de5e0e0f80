package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelInfo, Format: "text", Output: &buf})

	l.Info("hello", "key", "value")
	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key=value")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	l.Info("hello", "key", "value")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"key":"value"`)
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelWarn, Format: "text", Output: &buf})

	l.Debug("debug msg")
	l.Info("info msg")
	l.Warn("warn msg")
	l.Error("error msg")

	out := buf.String()
	assert.NotContains(t, out, "debug msg")
	assert.NotContains(t, out, "info msg")
	assert.Contains(t, out, "warn msg")
	assert.Contains(t, out, "error msg")
}

func TestStartTimer(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: slog.LevelInfo, Format: "text", Output: &buf})

	done := StartTimer(l, "checkpoint-save")
	done()

	out := buf.String()
	assert.Contains(t, out, "operation completed")
	assert.Contains(t, out, "checkpoint-save")
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Debug("a")
	l.Info("b")
	l.Warn("c")
	l.Error("d")
}
