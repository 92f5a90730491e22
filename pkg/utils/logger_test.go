package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"ERROR", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestDefaultLogger_FilterByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewDefaultLogger(LevelWarn, buf)

	logger.Debug("dropped candidate")
	logger.Info("scan finished")
	logger.Warn("layout violation")
	logger.Error("decode failed")

	output := buf.String()
	assert.NotContains(t, output, "dropped candidate")
	assert.NotContains(t, output, "scan finished")
	assert.Contains(t, output, "[WARN] layout violation")
	assert.Contains(t, output, "[ERROR] decode failed")
}

func TestDefaultLogger_SetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewDefaultLogger(LevelInfo, buf)

	logger.Debug("debug 1")
	assert.NotContains(t, buf.String(), "debug 1")

	logger.SetLevel(LevelDebug)
	logger.Debug("debug 2")
	assert.Contains(t, buf.String(), "debug 2")
}

func TestDefaultLogger_LineFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewDefaultLogger(LevelInfo, buf)
	logger.SetClock(NewMockClock(time.Date(2025, 3, 1, 12, 30, 0, 5_000_000, time.UTC)))

	logger.WithFields(map[string]interface{}{
		"region": "rw",
		"file":   "app.aot",
	}).Info("found %d candidates", 12)

	assert.Equal(t, "[2025-03-01 12:30:00.005] [INFO] file=app.aot region=rw found 12 candidates\n", buf.String())
}

func TestDefaultLogger_PercentWithoutArgs(t *testing.T) {
	buf := &bytes.Buffer{}
	var logger Logger = NewDefaultLogger(LevelInfo, buf)

	logger.Info("100% scanned")
	assert.Contains(t, buf.String(), "100% scanned")
}

func TestDefaultLogger_WithFieldDoesNotLeak(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := NewDefaultLogger(LevelInfo, buf)

	child := parent.WithField("class", "java/lang/String")
	parent.Info("parent")
	child.Info("child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "class=")
	assert.Contains(t, lines[1], "class=java/lang/String child")
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "aotp.log")
	logger, closer, err := NewFileLogger(LevelInfo, path)
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNullLogger(t *testing.T) {
	logger := &NullLogger{}

	logger.Debug("debug")
	logger.Error("error %d", 1)

	assert.Equal(t, logger, logger.WithField("key", "value"))
	assert.Equal(t, logger, logger.WithFields(map[string]interface{}{"key": "value"}))
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = &DefaultLogger{}
	var _ Logger = &NullLogger{}
}
