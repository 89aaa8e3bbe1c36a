// Package config loads the device configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a value is unset or unparsable.
const (
	DefaultPort            = 9090
	DefaultRefreshInterval = 10
	DefaultAPIPort         = 8081
)

// Config holds the connection target for one Kodi device plus the local
// HTTP API port. The target is fixed once the handler is started.
type Config struct {
	// IPAddress is the Kodi host. It may be empty, in which case the
	// device is reported offline with a configuration error.
	IPAddress string `yaml:"ipAddress"`

	// Port is the Kodi WebSocket (JSON-RPC) port.
	Port int `yaml:"port"`

	// RefreshInterval is the connection check period in seconds.
	RefreshInterval int `yaml:"refreshInterval"`

	// APIPort is the port the local HTTP API listens on.
	APIPort int `yaml:"apiPort"`
}

// Refresh returns the refresh interval as a duration.
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// Load reads the configuration file at path, applies environment variable
// overrides, and fills in defaults. An empty path skips the file and uses
// environment variables and defaults only.
func Load(path string, logger *zap.Logger) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		logger.Debug("Loading config file", zap.String("path", path))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv(logger)
	cfg.applyDefaults()

	logger.Info("Configuration loaded",
		zap.String("host", cfg.IPAddress),
		zap.Int("port", cfg.Port),
		zap.Int("refresh_interval", cfg.RefreshInterval))
	return cfg, nil
}

// applyEnv overrides file values from the environment. Unparsable numeric
// values are logged and ignored.
func (c *Config) applyEnv(logger *zap.Logger) {
	if host := os.Getenv("KODI_HOST"); host != "" {
		c.IPAddress = host
	}
	if port, ok := intEnv("KODI_PORT", logger); ok {
		c.Port = port
	}
	if refresh, ok := intEnv("KODI_REFRESH_INTERVAL", logger); ok {
		c.RefreshInterval = refresh
	}
	if apiPort, ok := intEnv("API_PORT", logger); ok {
		c.APIPort = apiPort
	}
}

func intEnv(key string, logger *zap.Logger) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("Ignoring unparsable environment variable",
			zap.String("key", key),
			zap.String("value", raw))
		return 0, false
	}
	return value, true
}

// applyDefaults replaces unset or non-positive values with defaults.
func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.APIPort <= 0 {
		c.APIPort = DefaultAPIPort
	}
}
