package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int    `yaml:"port"`
		Timezone        string `yaml:"timezone"`
		ResolveTimeoutS int    `yaml:"resolve_timeout_seconds"`
	} `yaml:"server"`

	Bookings struct {
		DatabasePath string `yaml:"database_path"`
	} `yaml:"bookings"`

	Calendar struct {
		Enabled     bool    `yaml:"enabled"`
		CalendarID  string  `yaml:"calendar_id"`
		AccessToken string  `yaml:"access_token"`
		RatePerSec  float64 `yaml:"rate_per_sec"`
		RateBurst   int     `yaml:"rate_burst"`
	} `yaml:"calendar"`

	Sources struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"sources"`

	Cache struct {
		Backend string `yaml:"backend"` // "memory" or "redis"
		Redis   struct {
			Address  string `yaml:"address"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Warmup struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"warmup"`

	SchedulesPath string `yaml:"schedules_path"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Timezone == "" {
		cfg.Server.Timezone = "UTC"
	}
	if cfg.Bookings.DatabasePath == "" {
		cfg.Bookings.DatabasePath = "data/bookings.db"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.SchedulesPath == "" {
		cfg.SchedulesPath = "configs/schedules.yaml"
	}

	if _, err := time.LoadLocation(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("invalid server timezone %q: %w", cfg.Server.Timezone, err)
	}

	return &cfg, nil
}

// SourceTimeout is the per-adapter call budget.
func (c *Config) SourceTimeout() time.Duration {
	if c.Sources.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Sources.TimeoutSeconds) * time.Second
}

// ResolveTimeout is the overall budget for one blocked-dates query.
func (c *Config) ResolveTimeout() time.Duration {
	if c.Server.ResolveTimeoutS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.ResolveTimeoutS) * time.Second
}

// CalendarRate returns the configured calendar API rate limit.
func (c *Config) CalendarRate() (perSec float64, burst int) {
	perSec = c.Calendar.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	burst = c.Calendar.RateBurst
	if burst <= 0 {
		burst = 10
	}
	return perSec, burst
}
