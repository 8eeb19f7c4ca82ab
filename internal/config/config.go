// Package config loads the YAML service configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by the loader.
const (
	EnvConfigPath    = "REWARDS_CONFIG"
	EnvDatabaseDSN   = "REWARDS_DATABASE_DSN"
	EnvJWTSecret     = "REWARDS_JWT_SECRET"
	EnvWebhookSecret = "REWARDS_WEBHOOK_SECRET"
	EnvRedisAddr     = "REWARDS_REDIS_ADDR"
	EnvRedisPassword = "REWARDS_REDIS_PASSWORD"
	EnvListenAddr    = "REWARDS_LISTEN_ADDR"
	EnvLogLevel      = "REWARDS_LOG_LEVEL"
)

// DefaultConfigPath is used when neither a flag nor REWARDS_CONFIG is set.
const DefaultConfigPath = "config.yaml"

// ErrMissingDSN is returned when no database DSN is configured.
var ErrMissingDSN = errors.New("config: database dsn is required")

// AppConfig holds command-line inputs.
type AppConfig struct {
	ConfigPath string
}

// JWTConfig holds the token signing settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release or test.
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout"`
}

// DatabaseConfig holds the storage settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// WebhookConfig holds the payment-gateway signature settings.
type WebhookConfig struct {
	Secret    string        `yaml:"secret"`
	Tolerance time.Duration `yaml:"tolerance"`
}

// RedisConfig enables profile change publishing when Addr is set.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel-prefix"`
}

// LoggingConfig controls logrus output and file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // text or json.
	File       string `yaml:"file"`   // Empty logs to stdout only.
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// LoyaltyConfig holds background job settings.
type LoyaltyConfig struct {
	ExpirySweepInterval time.Duration `yaml:"expiry-sweep-interval"`
}

// Config is the whole configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Loyalty  LoyaltyConfig  `yaml:"loyalty"`
}

// ResolveConfigPath picks the config file: explicit path, then REWARDS_CONFIG, then the default.
func ResolveConfigPath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultConfigPath
}

// ConfigExists reports whether path names a readable regular file.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads path, applies environment overrides and fills defaults. A missing
// file is not an error; the environment alone may configure the service.
func Load(path string) (Config, error) {
	var cfg Config
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

// LoadDatabaseDSN returns the configured DSN.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, errLoad := Load(path)
	if errLoad != nil {
		return "", errLoad
	}
	if cfg.Database.DSN == "" {
		return "", ErrMissingDSN
	}
	return cfg.Database.DSN, nil
}

// LoadJWTConfig returns the token settings.
func LoadJWTConfig(path string) (JWTConfig, error) {
	cfg, errLoad := Load(path)
	if errLoad != nil {
		return JWTConfig{}, errLoad
	}
	return cfg.JWT, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.DSN, EnvDatabaseDSN)
	setString(&cfg.JWT.Secret, EnvJWTSecret)
	setString(&cfg.Webhook.Secret, EnvWebhookSecret)
	setString(&cfg.Redis.Addr, EnvRedisAddr)
	setString(&cfg.Redis.Password, EnvRedisPassword)
	setString(&cfg.Server.Addr, EnvListenAddr)
	setString(&cfg.Logging.Level, EnvLogLevel)
	if raw := strings.TrimSpace(os.Getenv("REWARDS_REDIS_DB")); raw != "" {
		if n, errParse := strconv.Atoi(raw); errParse == nil {
			cfg.Redis.DB = n
		}
	}
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8318"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.JWT.Expiry <= 0 {
		cfg.JWT.Expiry = 7 * 24 * time.Hour
	}
	if cfg.Webhook.Tolerance <= 0 {
		cfg.Webhook.Tolerance = 5 * time.Minute
	}
	if cfg.Redis.ChannelPrefix == "" {
		cfg.Redis.ChannelPrefix = "loyalty:profile:"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 5
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	if cfg.Loyalty.ExpirySweepInterval <= 0 {
		cfg.Loyalty.ExpirySweepInterval = 6 * time.Hour
	}
}
