// Package config provides configuration loading for workspaced.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (WORKSPACED_SERVER_PORT, ...)
//  2. YAML config file (~/.config/workspaced/config.yaml)
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/workspaced/internal/logging"
	"github.com/fyrsmithlabs/workspaced/internal/telemetry"
)

// Config is the root configuration for the daemon.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Backend   BackendConfig    `koanf:"backend"`
	Logging   logging.Config   `koanf:"logging"`
	Analysis  AnalysisConfig   `koanf:"analysis"`
	Telemetry telemetry.Config `koanf:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// BackendConfig holds analysis backend settings.
type BackendConfig struct {
	// NATSURL is the NATS server to publish folder events to. Empty
	// means no backend: events are logged and dropped.
	NATSURL string `koanf:"nats_url"`

	// DrainTimeout bounds how long shutdown waits for queued backend
	// tasks to finish.
	DrainTimeout Duration `koanf:"drain_timeout"`
}

// AnalysisConfig holds file classification settings.
type AnalysisConfig struct {
	// TestFilePatterns are ignore-style glob patterns marking test
	// files, matched against paths relative to the folder root.
	TestFilePatterns []string `koanf:"test_file_patterns"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9640,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Backend: BackendConfig{
			DrainTimeout: Duration(30 * time.Second),
		},
		Logging: logging.NewDefaultConfig(),
		Analysis: AnalysisConfig{
			TestFilePatterns: []string{
				"**/*_test.go",
				"**/test/**",
				"**/tests/**",
			},
		},
		Telemetry: telemetry.NewDefaultConfig(),
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}
	if c.Backend.DrainTimeout.Duration() <= 0 {
		return fmt.Errorf("backend drain timeout must be positive")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
