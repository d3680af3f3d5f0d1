package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config file should yield defaults, got %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("listen address = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Engine.PolicyFile != DefaultPolicyFile {
		t.Errorf("policy file = %q, want %q", cfg.Engine.PolicyFile, DefaultPolicyFile)
	}
	if cfg.Engine.RefreshTimeout != DefaultRefreshTimeout {
		t.Errorf("refresh timeout = %s, want %s", cfg.Engine.RefreshTimeout, DefaultRefreshTimeout)
	}
	if cfg.Engine.ValidateTimeout != DefaultValidateTimeout {
		t.Errorf("validate timeout = %s, want %s", cfg.Engine.ValidateTimeout, DefaultValidateTimeout)
	}
	if cfg.Freshness.Mode != "poll" || cfg.Freshness.Interval != DefaultPollInterval {
		t.Errorf("freshness = %+v, want poll/%s", cfg.Freshness, DefaultPollInterval)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Telemetry.Logging)
	}
	if cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("retention = %d, want %d", cfg.History.RetentionDays, DefaultRetentionDays)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9000"
engine:
  project_root: /repo
  refresh_timeout: 2s
freshness:
  enabled: true
  mode: watch
telemetry:
  logging:
    level: debug
    format: text
history:
  enabled: true
  sqlite_path: state/history.db
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Engine.ProjectRoot != "/repo" {
		t.Errorf("project root = %q", cfg.Engine.ProjectRoot)
	}
	if cfg.Engine.RefreshTimeout != 2*time.Second {
		t.Errorf("refresh timeout = %s, want 2s", cfg.Engine.RefreshTimeout)
	}
	// unspecified fields still get defaults
	if cfg.Engine.ValidateTimeout != DefaultValidateTimeout {
		t.Errorf("validate timeout = %s, want default", cfg.Engine.ValidateTimeout)
	}
	if !cfg.Freshness.Enabled || cfg.Freshness.Mode != "watch" {
		t.Errorf("freshness = %+v", cfg.Freshness)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Telemetry.Logging)
	}
	if !cfg.History.Enabled || cfg.History.SQLitePath != "state/history.db" {
		t.Errorf("history = %+v", cfg.History)
	}
}

func TestLoadConfigClampsPollInterval(t *testing.T) {
	path := writeConfig(t, `
freshness:
  interval: 50ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Freshness.Interval != MinPollInterval {
		t.Errorf("interval = %s, want clamped to %s", cfg.Freshness.Interval, MinPollInterval)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad log level", "telemetry:\n  logging:\n    level: loud\n", "logging.level"},
		{"bad log format", "telemetry:\n  logging:\n    format: xml\n", "logging.format"},
		{"bad freshness mode", "freshness:\n  mode: psychic\n", "freshness.mode"},
		{"negative refresh timeout", "engine:\n  refresh_timeout: -1s\n", "refresh_timeout"},
		{"unparseable yaml", "server: [nope", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("WARDEN_SERVER_LISTEN_ADDRESS", "127.0.0.1:9999")
	t.Setenv("WARDEN_ENGINE_PROJECT_ROOT", "/elsewhere")
	t.Setenv("WARDEN_ENGINE_VALIDATE_TIMEOUT", "12s")
	t.Setenv("WARDEN_FRESHNESS_ENABLED", "true")
	t.Setenv("WARDEN_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("WARDEN_HISTORY_RETENTION_DAYS", "7")

	cfg, err := LoadConfigWithEnvOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}

	if cfg.Server.ListenAddress != "127.0.0.1:9999" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Engine.ProjectRoot != "/elsewhere" {
		t.Errorf("project root = %q", cfg.Engine.ProjectRoot)
	}
	if cfg.Engine.ValidateTimeout != 12*time.Second {
		t.Errorf("validate timeout = %s", cfg.Engine.ValidateTimeout)
	}
	if !cfg.Freshness.Enabled {
		t.Error("freshness not enabled via env")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("log level = %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.History.RetentionDays != 7 {
		t.Errorf("retention = %d", cfg.History.RetentionDays)
	}
}

func TestEnvOverrideRejectedByValidation(t *testing.T) {
	t.Setenv("WARDEN_TELEMETRY_LOGGING_LEVEL", "shouting")

	_, err := LoadConfigWithEnvOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("invalid env override should fail validation")
	}
}

func TestEnvOverrideClampsPollInterval(t *testing.T) {
	t.Setenv("WARDEN_FRESHNESS_INTERVAL", "10ms")

	cfg, err := LoadConfigWithEnvOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}
	if cfg.Freshness.Interval != MinPollInterval {
		t.Errorf("interval = %s, want %s", cfg.Freshness.Interval, MinPollInterval)
	}
}
