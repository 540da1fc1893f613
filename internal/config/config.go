// Package config provides configuration management for MCP Pulse.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the complete MCP Pulse configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Monitor MonitorConfig `toml:"monitor"`
	Export  ExportConfig  `toml:"export"`
	TUI     TUIConfig     `toml:"tui"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Name          string `toml:"name"`
	IngestPort    int    `toml:"ingest_port"`
	DashboardPort int    `toml:"dashboard_port"`
	BindAddress   string `toml:"bind_address"`
}

// MonitorConfig configures the recording engine.
type MonitorConfig struct {
	RetentionDays int           `toml:"retention_days"`
	SweepInterval time.Duration `toml:"sweep_interval"`
}

// ExportConfig configures snapshot serialization. When disabled, the
// dashboard API refuses snapshot reads and the exporter never runs; the
// engine itself is unaffected.
type ExportConfig struct {
	Enabled      bool          `toml:"enabled"`
	DatabasePath string        `toml:"database_path"`
	Interval     time.Duration `toml:"interval"`
}

// TUIConfig configures the terminal dashboard.
type TUIConfig struct {
	RefreshInterval time.Duration `toml:"refresh_interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".mcp-pulse")

	return &Config{
		Server: ServerConfig{
			Name:          "mcp-server",
			IngestPort:    9180,
			DashboardPort: 9181,
			BindAddress:   "127.0.0.1",
		},
		Monitor: MonitorConfig{
			RetentionDays: 30,
			SweepInterval: time.Hour,
		},
		Export: ExportConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(dataDir, "snapshots.db"),
			Interval:     5 * time.Minute,
		},
		TUI: TUIConfig{
			RefreshInterval: 2 * time.Second,
		},
	}
}

// LoadFromFile loads configuration from a TOML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Export.DatabasePath = expandHome(cfg.Export.DatabasePath)
	return cfg, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Load loads configuration from the default location or environment.
func Load() (*Config, error) {
	configPath := os.Getenv("MCP_PULSE_CONFIG")
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		configPath = filepath.Join(homeDir, ".config", "mcp-pulse", "config.toml")
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = DefaultConfig()
		} else {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MCP_PULSE_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("MCP_PULSE_INGEST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.IngestPort = port
		}
	}
	if v := os.Getenv("MCP_PULSE_DASHBOARD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.DashboardPort = port
		}
	}
	if v := os.Getenv("MCP_PULSE_BIND_ADDRESS"); v != "" {
		c.Server.BindAddress = v
	}
	if v := os.Getenv("MCP_PULSE_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Monitor.RetentionDays = days
		}
	}
	if v := os.Getenv("MCP_PULSE_EXPORT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Export.Enabled = enabled
		}
	}
	if v := os.Getenv("MCP_PULSE_DATABASE_PATH"); v != "" {
		c.Export.DatabasePath = expandHome(v)
	}
}

// IngestAddress returns the full event receiver address.
func (c *Config) IngestAddress() string {
	return c.Server.BindAddress + ":" + strconv.Itoa(c.Server.IngestPort)
}

// DashboardAddress returns the full dashboard API address.
func (c *Config) DashboardAddress() string {
	return c.Server.BindAddress + ":" + strconv.Itoa(c.Server.DashboardPort)
}

// EnsureDataDir creates the export database directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	dir := filepath.Dir(c.Export.DatabasePath)
	return os.MkdirAll(dir, 0755)
}
