// Package app wires the envoy-auth dependencies together.
package app

import (
	"context"
	"os"
	"path/filepath"

	httpadapter "envoyauth/internal/adapters/http"
	"envoyauth/internal/adapters/terminal"
	"envoyauth/internal/config"
	"envoyauth/internal/domain"
	"envoyauth/internal/logging"
)

// Options configures App construction.
type Options struct {
	ConfigPath string
	LogLevel   logging.LogLevel
	LogFormat  string
	Insecure   bool
}

// App holds the wired dependencies shared by the CLI commands.
type App struct {
	Config         *config.Config
	ConfigManager  *config.Manager
	Device         *httpadapter.Adapter
	PasswordReader domain.PasswordReader
	Logger         *logging.Logger
}

// New creates an App, loading configuration and constructing the adapters.
func New(ctx context.Context, opts Options) (*App, error) {
	logger := logging.NewLogger(logging.Config{
		Level:  opts.LogLevel,
		Format: opts.LogFormat,
		Output: os.Stderr,
	})
	logging.SetDefault(logger)

	manager := config.NewManager(opts.ConfigPath)
	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}

	insecure := opts.Insecure || cfg.InsecureSkipVerify
	device := httpadapter.NewAdapter(0, insecure, logger.Logger)
	passwordReader := terminal.NewAdapter(os.Stdin, os.Stderr)

	logger.DebugContext(ctx, "Initialized envoy-auth",
		"configPath", opts.ConfigPath,
		"host", cfg.Host,
		"method", cfg.Method,
		"insecure", insecure)

	return &App{
		Config:         cfg,
		ConfigManager:  manager,
		Device:         device,
		PasswordReader: passwordReader,
		Logger:         logger,
	}, nil
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "envoy-auth", "config.yaml"), nil
}
