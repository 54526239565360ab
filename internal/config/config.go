package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"diet-coach/internal/gateway"
	"diet-coach/internal/storage"
)

// Config represents the application configuration
type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Line      LineConfig      `yaml:"line"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"` // sqlite, file, redis
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

type LineConfig struct {
	ChannelSecret string `yaml:"channel_secret"`
	AccessToken   string `yaml:"access_token"`
	APIBase       string `yaml:"api_base"`
}

// RateLimitConfig bounds inbound messages per user.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Load reads .env (if present), then the optional YAML file at path, then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Env, "ENV")
	setString(&c.Line.ChannelSecret, "LINE_CHANNEL_SECRET")
	setString(&c.Line.AccessToken, "LINE_CHANNEL_ACCESS_TOKEN")
	setString(&c.Line.APIBase, "LINE_API_BASE")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.Path, "STORE_PATH")
	setString(&c.Store.RedisAddr, "REDIS_ADDR")
	setString(&c.Store.RedisPassword, "REDIS_PASSWORD")
	if v, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		c.Server.Port = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8011
	}
	if c.Store.Driver == "" {
		c.Store.Driver = storage.DriverSQLite
	}
	if c.Store.Path == "" {
		if c.Store.Driver == storage.DriverFile {
			c.Store.Path = "/data/sessions"
		} else {
			c.Store.Path = "/data/diet-coach.db"
		}
	}
	if c.Line.APIBase == "" {
		c.Line.APIBase = gateway.DefaultAPIBase
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case storage.DriverSQLite, storage.DriverFile:
	case storage.DriverRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}
	return nil
}

// StorageConfig maps the store section onto storage.Config.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:        c.Store.Driver,
		Path:          c.Store.Path,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		RedisPrefix:   c.Store.RedisPrefix,
	}
}

// GatewayConfig maps the line section onto gateway.Config.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		ChannelSecret: c.Line.ChannelSecret,
		AccessToken:   c.Line.AccessToken,
		APIBase:       c.Line.APIBase,
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
