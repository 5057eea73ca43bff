// Package config handles configuration loading from YAML and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Journal    JournalConfig    `yaml:"journal"`
	History    HistoryConfig    `yaml:"history"`
}

// ServerConfig locates the backend event stream.
type ServerConfig struct {
	URL      string `yaml:"url"`       // e.g. "wss://dispatch.example.com/ws"
	TenantID string `yaml:"tenant_id"` // default tenant, overridable per session
	UserID   string `yaml:"user_id"`
}

// ConnectionConfig tunes heartbeat and reconnect behavior.
type ConnectionConfig struct {
	HeartbeatIntervalS   int `yaml:"heartbeat_interval_s"`
	BackoffBaseMs        int `yaml:"backoff_base_ms"`
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
}

// JournalConfig configures the optional SQLite event journal.
type JournalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DBPath    string `yaml:"db_path"`
	MaxEvents int    `yaml:"max_events"`
}

// HistoryConfig bounds the in-memory event ring.
type HistoryConfig struct {
	Size int `yaml:"size"`
}

// DefaultConfig returns a Config with working defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "ws://localhost:8080/ws",
		},
		Connection: ConnectionConfig{
			HeartbeatIntervalS:   30,
			BackoffBaseMs:        500,
			MaxReconnectAttempts: 5,
		},
		Journal: JournalConfig{
			Enabled:   false,
			DBPath:    "", // Set in Load based on platform
			MaxEvents: 10000,
		},
		History: HistoryConfig{
			Size: 64,
		},
	}
}

// ConfigDir returns the platform-specific config directory.
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "dispatchsync"), nil
	default: // linux, darwin, etc.
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, ".config", "dispatchsync"), nil
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultDBPath returns the default journal database path.
func DefaultDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}

// Load loads configuration from file, with environment variable overrides.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dbPath, err := DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("getting default db path: %w", err)
	}
	cfg.Journal.DBPath = dbPath

	if path == "" {
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("getting default config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to the specified path.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DISPATCHSYNC_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("DISPATCHSYNC_TENANT"); v != "" {
		c.Server.TenantID = v
	}
	if v := os.Getenv("DISPATCHSYNC_USER"); v != "" {
		c.Server.UserID = v
	}
	if v := os.Getenv("DISPATCHSYNC_JOURNAL"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Journal.Enabled = enabled
		}
	}
	if v := os.Getenv("DISPATCHSYNC_JOURNAL_PATH"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("DISPATCHSYNC_MAX_RECONNECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Connection.MaxReconnectAttempts = n
		}
	}
}

// HeartbeatInterval returns the configured heartbeat period.
func (c *ConnectionConfig) HeartbeatInterval() time.Duration {
	if c.HeartbeatIntervalS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HeartbeatIntervalS) * time.Second
}

// BackoffBase returns the first reconnect delay; later attempts double it.
func (c *ConnectionConfig) BackoffBase() time.Duration {
	if c.BackoffBaseMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}
