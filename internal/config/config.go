package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported values of STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port               int           `envconfig:"PORT" default:"8080"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	Store              string        `envconfig:"STORE" default:"postgres"`
	DatabaseURL        string        `envconfig:"DATABASE_URL" default:""`
	MigrateOnStart     bool          `envconfig:"MIGRATE_ON_START" default:"true"`
	Version            string        `envconfig:"VERSION" default:"dev"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	// WriteRateLimit is in requests per second; zero disables limiting.
	WriteRateLimit float64 `envconfig:"WRITE_RATE_LIMIT" default:"0"`
	WriteRateBurst int     `envconfig:"WRITE_RATE_BURST" default:"20"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.WriteRateLimit < 0 {
		return errors.New("WRITE_RATE_LIMIT must not be negative")
	}
	return nil
}
