package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/ay_analyzer_go/internal/config"
)

func TestNewLoggerJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("test message", "key", "value")
	logger.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewLoggerBothWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	var buf bytes.Buffer

	logger, closer, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "both", FilePath: logFile}, &buf)
	require.NoError(t, err)

	logger.Debug("to both")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestNewLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "text", Output: "console"}, &buf)
	require.NoError(t, err)

	logger.Info("skipped")
	logger.Warn("kept", "count", 2)

	out := buf.String()
	assert.NotContains(t, out, "skipped")
	assert.True(t, strings.Contains(out, "msg=kept"), out)
	assert.Contains(t, out, "count=2")
}

func TestRunIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)

	runID := NewRunID()
	_, err = uuid.Parse(runID)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), runID)
	logger.With("component", "test").InfoContext(ctx, "with run")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, runID, entry["run_id"])
	assert.Equal(t, "test", entry["component"])
}

func TestRunIDMissing(t *testing.T) {
	assert.Equal(t, "", RunID(context.Background()))
	assert.Equal(t, "abc", RunID(WithRunID(context.Background(), "abc")))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"INFO":    "INFO",
		"warning": "WARN",
		"error":   "ERROR",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseLogLevel(in).String())
		})
	}
}
