package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
env: test
log:
  level: debug
  format: json
storage:
  driver: bolt
  path: /tmp/tk.bolt
session:
  start_policy: reject
health:
  source: http
  base_url: http://localhost:9000
server:
  enabled: true
  port: 9999
insights:
  hide_untracked: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Env != "test" || cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected top-level values %+v", cfg)
	}
	if cfg.Storage.Driver != "bolt" || cfg.Storage.Path != "/tmp/tk.bolt" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Session.StartPolicy != "reject" {
		t.Fatalf("unexpected policy %q", cfg.Session.StartPolicy)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9999 {
		t.Fatalf("unexpected server %+v", cfg.Server)
	}
	if !cfg.Insights.HideUntracked || cfg.Insights.ExcludeSleep {
		t.Fatalf("unexpected insights %+v", cfg.Insights)
	}
	if cfg.Health.CacheDays != 30 || cfg.Health.Timeout().Seconds() != 10 {
		t.Fatalf("defaults not applied: %+v", cfg.Health)
	}
	if cfg.LockPath() != "/tmp/tk.bolt.lock" {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}

func TestLoadConfigFallsBackToEnv(t *testing.T) {
	t.Setenv("TIMEKEEPER_STORAGE_DRIVER", "sqlite")
	t.Setenv("TIMEKEEPER_START_POLICY", "reject")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Session.StartPolicy != "reject" {
		t.Fatalf("env not applied: %q", cfg.Session.StartPolicy)
	}
	if cfg.Health.Source != "local" || cfg.Log.Format != "console" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.Storage.Path, filepath.Join("timekeeper", "timekeeper.sqlite")) {
		t.Fatalf("unexpected default storage path %q", cfg.Storage.Path)
	}
	if !strings.HasSuffix(cfg.Status.File, "status.json") {
		t.Fatalf("unexpected status path %q", cfg.Status.File)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Log:     Log{Format: "console"},
			Storage: Storage{Driver: "sqlite"},
			Session: Session{StartPolicy: "stop_previous"},
			Health:  Health{Source: "local", CacheDays: 30},
			Server:  Server{Port: 8765},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"driver", func(c *Config) { c.Storage.Driver = "csv" }, "storage.driver"},
		{"policy", func(c *Config) { c.Session.StartPolicy = "queue" }, "session.start_policy"},
		{"local needs sqlite", func(c *Config) { c.Storage.Driver = "bolt" }, "require the sqlite driver"},
		{"http needs url", func(c *Config) { c.Health.Source = "http" }, "health.base_url"},
		{"source", func(c *Config) { c.Health.Source = "fitbit" }, "health.source"},
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
