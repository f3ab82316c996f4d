// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Addr is the address the HTTP server listens on (e.g. :8080).
	Addr string `mapstructure:"PAYMANNI_ADDR"`
	// UpstreamURL is the base URL of the PayManni backend API.
	UpstreamURL string `mapstructure:"PAYMANNI_UPSTREAM_URL"`
	// SessionSecret signs the session cookie; required.
	SessionSecret string `mapstructure:"PAYMANNI_SESSION_SECRET"`
	// SessionTTLRaw is the session cookie lifetime (e.g. "720h").
	SessionTTLRaw string `mapstructure:"PAYMANNI_SESSION_TTL"`
	// RedisURL selects the Redis session store when set (redis://host:port/db).
	RedisURL string `mapstructure:"PAYMANNI_REDIS_URL"`
	// PostgresDSN selects the Postgres session store when set. RedisURL wins
	// if both are configured.
	PostgresDSN string `mapstructure:"PAYMANNI_PG_DSN"`
	// SendGridAPIKey enables the welcome mailer when set.
	SendGridAPIKey string `mapstructure:"SENDGRID_API_KEY"`
	// MailFrom is the welcome mail sender address.
	MailFrom string `mapstructure:"PAYMANNI_MAIL_FROM"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Missing .env is ignored; env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("PAYMANNI_ADDR", ":8080")
	v.SetDefault("PAYMANNI_UPSTREAM_URL", "http://localhost:9090")
	v.SetDefault("PAYMANNI_SESSION_SECRET", "")
	v.SetDefault("PAYMANNI_SESSION_TTL", "720h")
	v.SetDefault("PAYMANNI_REDIS_URL", "")
	v.SetDefault("PAYMANNI_PG_DSN", "")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("PAYMANNI_MAIL_FROM", "noreply@paymanni.org")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("config: PAYMANNI_ADDR must be set")
	}
	if cfg.UpstreamURL == "" {
		return nil, errors.New("config: PAYMANNI_UPSTREAM_URL must be set")
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("config: PAYMANNI_SESSION_SECRET must be set")
	}

	return &cfg, nil
}

// SessionTTL parses the configured cookie lifetime. Returns 720h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}
