package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./adboard.db"`
	UploadsDir   string `env:"UPLOADS_DIR" envDefault:"./uploads"` // Root of the image store
	JWTSecret    string `env:"JWT_SECRET"`
	Env          string `env:"APP_ENV" envDefault:"development"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// Per-IP token bucket for /login and /register.
	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" envDefault:"1"`
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" envDefault:"5"`

	SeedDefaultUsers bool `env:"SEED_DEFAULT_USERS" envDefault:"false"`

	// Background jobs. IMAGE_SWEEP_SCHEDULE=off disables the image sweep.
	ImageSweepSchedule string        `env:"IMAGE_SWEEP_SCHEDULE" envDefault:"@hourly"`
	ImageSweepGrace    time.Duration `env:"IMAGE_SWEEP_GRACE" envDefault:"1h"`
	StatsInterval      time.Duration `env:"STATS_INTERVAL" envDefault:"30s"`
}

// ImageSweepEnabled reports whether the orphaned image sweep should run.
func (c Config) ImageSweepEnabled() bool {
	return c.ImageSweepSchedule != "" && c.ImageSweepSchedule != "off"
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// Load loads configuration from environment variables, reading an optional
// .env file first. Values already present in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.StatsInterval <= 0 {
		return nil, fmt.Errorf("STATS_INTERVAL must be positive, got %s", cfg.StatsInterval)
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "development-only-secret"
	}

	return cfg, nil
}
