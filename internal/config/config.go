package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env        string `env:"APP_ENV" envDefault:"development"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Empty DATABASE_URL falls back to the in-memory store for local runs.
	DatabaseURL string `env:"DATABASE_URL"`

	// Optional manufacturing trigger targets.
	RedisURL                string `env:"REDIS_URL"`
	ManufacturingStream     string `env:"MANUFACTURING_STREAM" envDefault:"manufacturing:triggers"`
	ManufacturingWebhookURL string `env:"MANUFACTURING_WEBHOOK_URL"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Business-phase policy, passed to the review gate.
	CurrentPhase         int  `env:"CURRENT_PHASE" envDefault:"0"`
	EnablePaidValidation bool `env:"ENABLE_PAID_VALIDATION" envDefault:"false"`

	DuplicateLookbackDays int           `env:"DUPLICATE_LOOKBACK_DAYS" envDefault:"90"`
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

func (c Config) DuplicateLookback() time.Duration {
	return time.Duration(c.DuplicateLookbackDays) * 24 * time.Hour
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
