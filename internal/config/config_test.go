package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.IngestPort != 9180 {
		t.Errorf("expected ingest port 9180, got %d", cfg.Server.IngestPort)
	}
	if cfg.Server.DashboardPort != 9181 {
		t.Errorf("expected dashboard port 9181, got %d", cfg.Server.DashboardPort)
	}
	if cfg.Server.BindAddress != "127.0.0.1" {
		t.Errorf("expected localhost bind, got %s", cfg.Server.BindAddress)
	}
	if cfg.Monitor.RetentionDays != 30 {
		t.Errorf("expected 30 day retention, got %d", cfg.Monitor.RetentionDays)
	}
	if cfg.Monitor.SweepInterval != time.Hour {
		t.Errorf("expected hourly sweep, got %v", cfg.Monitor.SweepInterval)
	}
	if !cfg.Export.Enabled {
		t.Error("expected export enabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[server]
name = "prod-mcp"
ingest_port = 7070
bind_address = "0.0.0.0"

[monitor]
retention_days = 14

[export]
enabled = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Name != "prod-mcp" {
		t.Errorf("expected server name 'prod-mcp', got %s", cfg.Server.Name)
	}
	if cfg.Server.IngestPort != 7070 {
		t.Errorf("expected ingest port 7070, got %d", cfg.Server.IngestPort)
	}
	if cfg.Server.BindAddress != "0.0.0.0" {
		t.Errorf("expected bind 0.0.0.0, got %s", cfg.Server.BindAddress)
	}
	if cfg.Monitor.RetentionDays != 14 {
		t.Errorf("expected 14 day retention, got %d", cfg.Monitor.RetentionDays)
	}
	if cfg.Export.Enabled {
		t.Error("expected export disabled")
	}

	// Unspecified fields keep their defaults.
	if cfg.Server.DashboardPort != 9181 {
		t.Errorf("expected default dashboard port, got %d", cfg.Server.DashboardPort)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadFromFile_ExpandsHome(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[export]
database_path = "~/pulse/snapshots.db"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	want := filepath.Join(home, "pulse", "snapshots.db")
	if cfg.Export.DatabasePath != want {
		t.Errorf("expected %s, got %s", want, cfg.Export.DatabasePath)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MCP_PULSE_SERVER_NAME", "env-server")
	t.Setenv("MCP_PULSE_INGEST_PORT", "8081")
	t.Setenv("MCP_PULSE_RETENTION_DAYS", "3")
	t.Setenv("MCP_PULSE_EXPORT_ENABLED", "false")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Name != "env-server" {
		t.Errorf("expected env server name, got %s", cfg.Server.Name)
	}
	if cfg.Server.IngestPort != 8081 {
		t.Errorf("expected env ingest port, got %d", cfg.Server.IngestPort)
	}
	if cfg.Monitor.RetentionDays != 3 {
		t.Errorf("expected env retention, got %d", cfg.Monitor.RetentionDays)
	}
	if cfg.Export.Enabled {
		t.Error("expected export disabled via env")
	}
}

func TestApplyEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("MCP_PULSE_INGEST_PORT", "not-a-port")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Server.IngestPort != 9180 {
		t.Errorf("invalid env value must not override default, got %d", cfg.Server.IngestPort)
	}
}

func TestAddresses(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.IngestAddress(); got != "127.0.0.1:9180" {
		t.Errorf("unexpected ingest address %s", got)
	}
	if got := cfg.DashboardAddress(); got != "127.0.0.1:9181" {
		t.Errorf("unexpected dashboard address %s", got)
	}
}
