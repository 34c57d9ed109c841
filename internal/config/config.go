package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Geocode struct {
		BaseURL         string  `yaml:"base_url"`
		UserAgent       string  `yaml:"user_agent"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
	} `yaml:"geocode"`

	Checkin struct {
		AccuracyWarnMeters   float64 `yaml:"accuracy_warn_meters"`
		AutoClosePollSeconds int     `yaml:"auto_close_poll_seconds"`
	} `yaml:"checkin"`

	Search struct {
		DebounceMillis int `yaml:"debounce_millis"`
	} `yaml:"search"`

	ClientState struct {
		Path string `yaml:"path"`
	} `yaml:"client_state"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
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

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/truckspot.db"
	}
	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Geocode.BaseURL == "" {
		cfg.Geocode.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Geocode.UserAgent == "" {
		cfg.Geocode.UserAgent = "Truckspot/1.0"
	}
	if cfg.Checkin.AccuracyWarnMeters == 0 {
		cfg.Checkin.AccuracyWarnMeters = 50
	}
	if cfg.ClientState.Path == "" {
		cfg.ClientState.Path = "data/client_state.json"
	}

	return &cfg, nil
}

func (c *Config) AutoClosePoll() time.Duration {
	if c.Checkin.AutoClosePollSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Checkin.AutoClosePollSeconds) * time.Second
}

func (c *Config) SearchDebounce() time.Duration {
	if c.Search.DebounceMillis <= 0 {
		return 350 * time.Millisecond
	}
	return time.Duration(c.Search.DebounceMillis) * time.Millisecond
}

func (c *Config) GeocodeCacheTTL() time.Duration {
	return time.Duration(c.Geocode.CacheTTLSeconds) * time.Second
}

func (c *Config) GeocodeRate() float64 {
	if c.Geocode.RatePerSecond <= 0 {
		return 1 // Nominatim usage policy: at most one request per second.
	}
	return c.Geocode.RatePerSecond
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
