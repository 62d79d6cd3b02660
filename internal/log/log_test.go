package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestLevelThreshold(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn")
	Error("shown error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn")
	assert.Contains(t, out, "[ERROR] shown error err=boom")
}

func TestErrorWithoutErr(t *testing.T) {
	buf := captureOutput(t)

	Error("gorm: record broken", nil, "table", "events")

	assert.Contains(t, buf.String(), "[ERROR] gorm: record broken table=events")
	assert.NotContains(t, buf.String(), "err=")
}

func TestKeyValueFormatting(t *testing.T) {
	buf := captureOutput(t)

	Info("event added", "date", "2024-03-15", "title", "Team sync", 42, "dropped", "odd")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `date=2024-03-15`)
	assert.Contains(t, line, `title="Team sync"`)
	assert.NotContains(t, line, "dropped")
	assert.NotContains(t, line, "odd")
}
