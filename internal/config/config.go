package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	Port int `yaml:"port"` // /metrics and /health
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	HMACSecret string        `yaml:"hmac_secret"`
	TTL        time.Duration `yaml:"ttl"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Delay      time.Duration `yaml:"delay"`
}

type LimitsConfig struct {
	CreatePerMinute   int           `yaml:"create_per_minute"`
	ValidatePerWindow int           `yaml:"validate_per_window"`
	ValidateWindow    time.Duration `yaml:"validate_window"`
}

type CodesConfig struct {
	OpTimeout time.Duration `yaml:"op_timeout"` // per-operation storage budget
	Retry     RetryConfig   `yaml:"retry"`
	Limits    LimitsConfig  `yaml:"limits"`
}

type ReminderConfig struct {
	Interval   time.Duration `yaml:"interval"`
	WithinDays int           `yaml:"within_days"`
	Workers    int           `yaml:"workers"`
}

type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Codes    CodesConfig    `yaml:"codes"`
	Reminder ReminderConfig `yaml:"reminder"`
	Sweep    SweepConfig    `yaml:"sweep"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays DATABASE_URL / REDIS_URL /
// AUTH_HMAC_SECRET from the environment (a .env file is honored when present),
// applies defaults, and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// env overlay
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Admin.Port == 0 {
		cfg.Admin.Port = 9090
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Auth.TTL <= 0 {
		cfg.Auth.TTL = 30 * time.Minute
	}
	if cfg.Codes.OpTimeout <= 0 {
		cfg.Codes.OpTimeout = 5 * time.Second
	}
	if cfg.Codes.Retry.MaxRetries <= 0 {
		cfg.Codes.Retry.MaxRetries = 3
	}
	if cfg.Codes.Retry.Delay <= 0 {
		cfg.Codes.Retry.Delay = 100 * time.Millisecond
	}
	if cfg.Codes.Limits.CreatePerMinute <= 0 {
		cfg.Codes.Limits.CreatePerMinute = 5
	}
	if cfg.Codes.Limits.ValidatePerWindow <= 0 {
		cfg.Codes.Limits.ValidatePerWindow = 10
	}
	if cfg.Codes.Limits.ValidateWindow <= 0 {
		cfg.Codes.Limits.ValidateWindow = 15 * time.Minute
	}
	if cfg.Reminder.Interval <= 0 {
		cfg.Reminder.Interval = time.Hour
	}
	if cfg.Reminder.WithinDays <= 0 {
		cfg.Reminder.WithinDays = 3
	}
	if cfg.Reminder.Workers <= 0 {
		cfg.Reminder.Workers = 4
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = time.Hour
	}

	// minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.HMACSecret == "" && !dev {
		return nil, errors.New("auth.hmac_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
