// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings
type Config struct {
	Addr     string `envconfig:"MARQUEE_ADDR" default:":8080"`
	LogLevel string `envconfig:"MARQUEE_LOG_LEVEL" default:"info"`

	Database DatabaseConfig
	TMDB     TMDBConfig
	Auth     AuthConfig
}

// DatabaseConfig contains sqlite connection settings
type DatabaseConfig struct {
	Path         string `envconfig:"MARQUEE_DATABASE_PATH" default:"marquee.db"`
	MaxOpenConns int    `envconfig:"MARQUEE_DATABASE_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns int    `envconfig:"MARQUEE_DATABASE_MAX_IDLE_CONNS" default:"5"`
}

// TMDBConfig contains metadata provider settings
type TMDBConfig struct {
	APIKey  string        `envconfig:"TMDB_API_KEY" required:"true"`
	BaseURL string        `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
	Timeout time.Duration `envconfig:"TMDB_TIMEOUT" default:"10s"`
}

// AuthConfig contains session and rate limit settings
type AuthConfig struct {
	SessionTTL           time.Duration `envconfig:"MARQUEE_SESSION_TTL" default:"720h"`
	SessionPurgeInterval time.Duration `envconfig:"MARQUEE_SESSION_PURGE_INTERVAL" default:"1h"`
	RateLimit            float64       `envconfig:"MARQUEE_AUTH_RATE_LIMIT" default:"1"`
	RateBurst            int           `envconfig:"MARQUEE_AUTH_RATE_BURST" default:"5"`
}

// Load reads an optional .env file and then decodes the environment.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			log.Warn("Could not load env file", "path", envFile, "err", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if cfg.TMDB.APIKey == "" {
		return nil, errors.New("TMDB_API_KEY environment variable is required")
	}
	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("MARQUEE_SESSION_TTL must be positive, got %s", cfg.Auth.SessionTTL)
	}

	return &cfg, nil
}
