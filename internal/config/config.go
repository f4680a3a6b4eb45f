package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Placeholder values shipped in the sample .env. They count as "not configured".
const (
	PlaceholderDatabaseURL = "your-database-url"
	PlaceholderAccessKey   = "your-access-key"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	ClinicID          string        `mapstructure:"CLINIC_ID"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DatabaseAccessKey string        `mapstructure:"DATABASE_ACCESS_KEY"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	ProbeRetries      int           `mapstructure:"PROBE_RETRIES"`
	ProbeBackoff      time.Duration `mapstructure:"PROBE_BACKOFF"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	QueueCacheTTL     time.Duration `mapstructure:"QUEUE_CACHE_TTL"`
	AuthSigningKey    string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthTokenTTL      time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	AdminUsername     string        `mapstructure:"ADMIN_USERNAME"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
}

// Load reads configuration from the environment and an optional .env file.
// Missing database settings are not an error: the server starts in the
// setup-required state instead.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CLINIC_ID", "CLN1")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("PROBE_RETRIES", 3)
	v.SetDefault("PROBE_BACKOFF", "1s")
	v.SetDefault("QUEUE_CACHE_TTL", "15s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("AUTH_TOKEN_TTL", "12h")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")

	for _, key := range []string{
		"PORT", "ENV", "CLINIC_ID", "DATABASE_URL", "DATABASE_ACCESS_KEY",
		"DB_MAX_CONNS", "DB_MIN_CONNS", "PROBE_RETRIES", "PROBE_BACKOFF",
		"REDIS_URL", "QUEUE_CACHE_TTL", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "AUTH_TOKEN_TTL", "ADMIN_USERNAME",
		"ADMIN_PASSWORD_HASH", "REQUEST_TIMEOUT", "BODY_LIMIT",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.ClinicID = strings.ToUpper(strings.TrimSpace(cfg.ClinicID))

	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		log.Println("WARNING: running in development mode without AUTH_SIGNING_KEY; all requests get admin access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DatastoreConfigured reports whether both connection parameters are present
// and are not the sample placeholders.
func (c *Config) DatastoreConfigured() bool {
	url := strings.TrimSpace(c.DatabaseURL)
	key := strings.TrimSpace(c.DatabaseAccessKey)
	if url == "" || key == "" {
		return false
	}
	if url == PlaceholderDatabaseURL || key == PlaceholderAccessKey {
		return false
	}
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Validate checks settings that would make the server unsafe to run.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required in production")
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters, got %d", len(c.AuthSigningKey))
	}
	if c.ProbeRetries < 1 {
		return fmt.Errorf("PROBE_RETRIES must be at least 1, got %d", c.ProbeRetries)
	}
	if c.AdminPasswordHash != "" && c.AuthSigningKey == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH requires AUTH_SIGNING_KEY to issue tokens")
	}
	if c.ClinicID == "" {
		return fmt.Errorf("CLINIC_ID must not be empty")
	}
	return nil
}
