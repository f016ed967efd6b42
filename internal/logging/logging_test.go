package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name         string
		level        LogLevel
		debugVisible bool
	}{
		{name: "debug level shows debug", level: LevelDebug, debugVisible: true},
		{name: "info level hides debug", level: LevelInfo, debugVisible: false},
		{name: "warn level hides debug", level: LevelWarn, debugVisible: false},
		{name: "error level hides debug", level: LevelError, debugVisible: false},
		{name: "unknown level defaults to info", level: LogLevel("bogus"), debugVisible: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(Config{Level: tt.level, Format: "text", Output: &buf})

			logger.Debug("debug message")
			assert.Equal(t, tt.debugVisible, bytes.Contains(buf.Bytes(), []byte("debug message")))
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelInfo, Format: "json", Output: &buf})

	logger.Info("token obtained", "serial", "123456789012")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "token obtained", entry["msg"])
	assert.Equal(t, "123456789012", entry["serial"])
}

func TestLogger_FieldHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: LevelInfo, Format: "json", Output: &buf})

	logger.WithEnvoy("envoy.local").WithOperation("setup").Info("verifying token")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "envoy.local", entry["envoy_host"])
	assert.Equal(t, "setup", entry["operation"])
}

func TestSetDefault(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	var buf bytes.Buffer
	replacement := NewLogger(Config{Level: LevelDebug, Format: "text", Output: &buf})
	SetDefault(replacement)

	assert.Same(t, replacement, Default())
	assert.IsType(t, &slog.Logger{}, Default().Logger)
}
