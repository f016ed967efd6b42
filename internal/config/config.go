// Package config handles the envoy-auth configuration file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"envoyauth/internal/errors"
)

// Config represents the envoy-auth configuration file.
type Config struct {
	// Host is the Envoy's address on the local network, without scheme.
	Host string `yaml:"host"`

	// Method selects the authentication scheme: "token" or "legacy".
	Method string `yaml:"method"`

	// Serial is the Envoy serial number, required for token authentication.
	Serial string `yaml:"serial,omitempty"`

	// CloudUsername is the Enlighten account email, required for token
	// authentication. The password is never stored; it comes from the
	// ENLIGHTEN_PASSWORD environment variable or an interactive prompt.
	CloudUsername string `yaml:"cloudUsername,omitempty"`

	// LocalUsername is the local device username for legacy authentication.
	LocalUsername string `yaml:"localUsername,omitempty"`

	// InsecureSkipVerify disables TLS verification for the local Envoy,
	// which typically runs a self-signed certificate.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify,omitempty"`
}

// validMethods contains the supported authentication methods.
//
//nolint:gochecknoglobals // Package-level constant for method validation
var validMethods = []string{"token", "legacy"}

// IsValidMethod checks if the provided authentication method is supported.
func IsValidMethod(method string) bool {
	for _, valid := range validMethods {
		if valid == method {
			return true
		}
	}
	return false
}

// SupportedMethodsString returns a formatted string of all supported methods.
func SupportedMethodsString() string {
	return strings.Join(validMethods, ", ")
}

// Manager handles configuration file operations.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Load loads the configuration from the file system. A missing or empty file
// yields defaults.
func (m *Manager) Load() (*Config, error) {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return defaultConfig(), nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, errors.NewConfigurationError("config_path", m.configPath, "failed to read config file", err)
	}

	if len(data) == 0 {
		return defaultConfig(), nil
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, errors.NewConfigurationError("config_format", "yaml", "failed to unmarshal config", err)
	}

	if config.Method != "" && !IsValidMethod(config.Method) {
		return nil, errors.NewConfigurationError(
			"method", config.Method, "unsupported authentication method, expected one of: "+SupportedMethodsString(), nil)
	}

	return &config, nil
}

// Save saves the configuration to the file system.
func (m *Manager) Save(config *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o750); err != nil {
		return errors.NewConfigurationError(
			"config_directory",
			filepath.Dir(m.configPath),
			"failed to create config directory",
			err,
		)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.NewConfigurationError("config_format", "yaml", "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o600); err != nil {
		return errors.NewConfigurationError("config_path", m.configPath, "failed to write config file", err)
	}

	return nil
}

func defaultConfig() *Config {
	return &Config{
		Method: "token",
	}
}
