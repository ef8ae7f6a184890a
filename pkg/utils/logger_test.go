package utils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"trace", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestParseLogFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseLogFormat("JSON"))
	assert.Equal(t, FormatText, ParseLogFormat("text"))
	assert.Equal(t, FormatText, ParseLogFormat(""))
}

func TestDefaultLogger_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewDefaultLogger(LevelWarn, buf)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("partition %d of %d", 3, 8)
	logger.Error("worker failed")
	assert.NotContains(t, buf.String(), "dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "["))
	assert.Contains(t, lines[0], "[WARN] partition 3 of 8")
	assert.Contains(t, lines[1], "[ERROR] worker failed")

	logger.SetLevel(LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "[DEBUG] now visible")
}

func TestDefaultLogger_Fields(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewDefaultLogger(LevelInfo, buf)

	run := base.WithField("run_id", "r-1")
	run.WithFields(map[string]interface{}{"kind": "prim", "attempt": 2}).Info("started")
	base.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "attempt=2 kind=prim run_id=r-1 started")
	assert.NotContains(t, lines[1], "run_id", "fields do not leak into the parent")
}

func TestDefaultLogger_SharedLock(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewDefaultLogger(LevelInfo, buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			l := base.WithField("worker", worker)
			for j := 0; j < 50; j++ {
				l.Info("step %d", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 400)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "["), "interleaved line %q", line)
	}
}

func TestJSONLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(LevelInfo, buf)

	logger.WithFields(map[string]interface{}{
		"iteration": 3,
		"err":       errors.New("boom"),
	}).Info("iteration %s", "done")

	var entry map[string]interface{}
	require.NoError(t, sonnet.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "iteration done", entry["msg"])
	assert.Equal(t, float64(3), entry["iteration"])
	assert.Equal(t, "boom", entry["err"])
	assert.NotEmpty(t, entry["time"])
}

func TestDefaultLogger_SetFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewDefaultLogger(LevelInfo, buf)
	logger.SetFormat(FormatJSON)
	logger.Info("switched")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := NewFileLogger(LevelInfo, path)
	require.NoError(t, err)
	logger.Info("first")

	logger, err = NewFileLogger(LevelInfo, path)
	require.NoError(t, err)
	logger.Info("second")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestNullLoggerAndOrNull(t *testing.T) {
	var _ Logger = &DefaultLogger{}
	null := &NullLogger{}
	null.Error("ignored")
	assert.Equal(t, Logger(null), null.WithField("k", "v"))
	assert.Equal(t, Logger(null), null.WithFields(nil))

	assert.IsType(t, &NullLogger{}, OrNull(nil))
	l := NewDefaultLogger(LevelInfo, &bytes.Buffer{})
	assert.Equal(t, Logger(l), OrNull(l))
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(original) })

	buf := &bytes.Buffer{}
	SetGlobalLogger(NewDefaultLogger(LevelInfo, buf))
	GetGlobalLogger().Info("global log")
	assert.Contains(t, buf.String(), "global log")
}
