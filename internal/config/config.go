// Package config loads process settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"port"`
	DatabaseURL    string        `mapstructure:"database_url"`
	DatabaseDriver string        `mapstructure:"database_driver"`
	CatalogFile    string        `mapstructure:"catalog_file"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`

	SessionBackend  string        `mapstructure:"session_backend"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SessionCapacity int           `mapstructure:"session_capacity"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`

	LoginRate  float64 `mapstructure:"login_rate"`
	LoginBurst int     `mapstructure:"login_burst"`

	LogLevel string `mapstructure:"log_level"`
	GinMode  string `mapstructure:"gin_mode"`
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5000")
	v.SetDefault("database_url", "")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("catalog_file", "")
	v.SetDefault("query_timeout", "0s")

	v.SetDefault("session_backend", SessionBackendMemory)
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("session_capacity", 10000)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cookie_secure", false)

	v.SetDefault("login_rate", 1.0)
	v.SetDefault("login_burst", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("gin_mode", "release")
}

// Load reads the configuration with Read and validates it.
func Load(envFile string) (*Config, error) {
	cfg, err := Read(envFile)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Read loads envFile when it exists, then the environment. Variables already
// set in the environment win over the file. The result is not validated.
func Read(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	switch c.DatabaseDriver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SessionCapacity <= 0 {
		return errors.New("SESSION_CAPACITY must be positive")
	}
	switch c.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported GIN_MODE %q", c.GinMode)
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		return errors.New("LOGIN_RATE and LOGIN_BURST must be positive")
	}
	return nil
}
