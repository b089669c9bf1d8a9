package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/ilyakaznacheev/cleanenv"
)

const appName = "timekeeper"

type Config struct {
	Env           string        `yaml:"env" env:"TIMEKEEPER_ENV" env-default:"local"`
	Log           Log           `yaml:"log"`
	Storage       Storage       `yaml:"storage"`
	Session       Session       `yaml:"session"`
	Health        Health        `yaml:"health"`
	Server        Server        `yaml:"server"`
	Status        Status        `yaml:"status"`
	Notifications Notifications `yaml:"notifications"`
	Hooks         Hooks         `yaml:"hooks"`
	Insights      Insights      `yaml:"insights"`
}

type Log struct {
	Level      string `yaml:"level" env:"TIMEKEEPER_LOG_LEVEL" env-default:"info"`
	Format     string `yaml:"format" env:"TIMEKEEPER_LOG_FORMAT" env-default:"console"`
	File       string `yaml:"file" env:"TIMEKEEPER_LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env-default:"28"`
}

type Storage struct {
	Driver string `yaml:"driver" env:"TIMEKEEPER_STORAGE_DRIVER" env-default:"sqlite"`
	Path   string `yaml:"path" env:"TIMEKEEPER_STORAGE_PATH"`
}

type Session struct {
	StartPolicy string `yaml:"start_policy" env:"TIMEKEEPER_START_POLICY" env-default:"stop_previous"`
}

type Health struct {
	Source          string `yaml:"source" env:"TIMEKEEPER_HEALTH_SOURCE" env-default:"local"`
	BaseURL         string `yaml:"base_url" env:"TIMEKEEPER_HEALTH_URL"`
	Token           string `yaml:"token" env:"TIMEKEEPER_HEALTH_TOKEN"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" env-default:"10"`
	CacheDays       int    `yaml:"cache_days" env-default:"30"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds" env-default:"300"`
}

func (h Health) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

func (h Health) CacheTTL() time.Duration {
	return time.Duration(h.CacheTTLSeconds) * time.Second
}

type Server struct {
	Enabled bool `yaml:"enabled" env:"TIMEKEEPER_SERVER_ENABLED" env-default:"false"`
	Port    int  `yaml:"port" env:"TIMEKEEPER_SERVER_PORT" env-default:"8765"`
}

type Status struct {
	File string `yaml:"file" env:"TIMEKEEPER_STATUS_FILE"`
}

type Notifications struct {
	Enabled bool `yaml:"enabled" env:"TIMEKEEPER_NOTIFICATIONS" env-default:"false"`
}

type Hooks struct {
	OnStop string `yaml:"on_stop" env:"TIMEKEEPER_HOOK_ON_STOP"`
}

// Insights switches default to off, so every bucket is shown unless hidden.
type Insights struct {
	HideUntracked   bool `yaml:"hide_untracked" env:"TIMEKEEPER_HIDE_UNTRACKED"`
	ExcludeSleep    bool `yaml:"exclude_sleep"`
	ExcludeWorkouts bool `yaml:"exclude_workouts"`
}

// DefaultPath is where LoadConfig looks when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// LoadConfig reads path, falling back to environment variables when the
// file does not exist.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = DefaultPath()
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to stat config %s: %w", path, statErr)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	dataDir := filepath.Join(xdg.DataHome, appName)

	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(dataDir, appName+"."+c.Storage.Driver)
	}
	if c.Status.File == "" {
		c.Status.File = filepath.Join(xdg.StateHome, appName, "status.json")
	}
}

// LockPath is the process lock file next to the database.
func (c *Config) LockPath() string {
	return c.Storage.Path + ".lock"
}

// Validate rejects unknown drivers, policies and sources.
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	switch c.Storage.Driver {
	case "sqlite", "bolt":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}

	switch c.Session.StartPolicy {
	case "stop_previous", "reject":
	default:
		errs = append(errs, fmt.Errorf("session.start_policy: unknown policy %q", c.Session.StartPolicy))
	}

	switch c.Health.Source {
	case "none":
	case "local":
		if c.Storage.Driver != "sqlite" {
			errs = append(errs, errors.New("health.source: local samples require the sqlite driver"))
		}
	case "http":
		if c.Health.BaseURL == "" {
			errs = append(errs, errors.New("health.base_url: required for the http source"))
		}
	default:
		errs = append(errs, fmt.Errorf("health.source: unknown source %q", c.Health.Source))
	}

	if c.Health.CacheDays < 1 {
		errs = append(errs, errors.New("health.cache_days: must be positive"))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
