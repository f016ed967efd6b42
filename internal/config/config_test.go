package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "envoyauth/internal/errors"
)

func TestManager_Load_MissingFileYieldsDefaults(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "config.yaml"))

	cfg, err := manager.Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Method)
	assert.Empty(t, cfg.Host)
}

func TestManager_Load_EmptyFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte{}, 0o600))

	cfg, err := NewManager(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.Method)
}

func TestManager_SaveAndLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	manager := NewManager(path)

	original := &Config{
		Host:               "envoy.local",
		Method:             "token",
		Serial:             "123456789012",
		CloudUsername:      "owner@example.com",
		InsecureSkipVerify: true,
	}
	require.NoError(t, manager.Save(original))

	loaded, err := manager.Load()
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestManager_Load_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: [unclosed"), 0o600))

	_, err := NewManager(path).Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestManager_Load_InvalidMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: envoy.local\nmethod: oauth\n"), 0o600))

	_, err := NewManager(path).Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "unsupported authentication method")
}

func TestIsValidMethod(t *testing.T) {
	tests := []struct {
		method   string
		expected bool
	}{
		{method: "token", expected: true},
		{method: "legacy", expected: true},
		{method: "digest", expected: false},
		{method: "", expected: false},
		{method: "Token", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidMethod(tt.method))
		})
	}
}

func TestSupportedMethodsString(t *testing.T) {
	assert.Equal(t, "token, legacy", SupportedMethodsString())
}
