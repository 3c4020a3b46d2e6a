package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains service configuration parameters. All values come from
// QD_-prefixed environment variables.
type Config struct {
	Addr       string   `env:"ADDR" envDefault:":8080"`
	Env        string   `env:"ENV" envDefault:"development"`
	RateBurst  int      `env:"RATE_BURST" envDefault:"50"`
	RatePerSec int      `env:"RATE_PER_SEC" envDefault:"25"`
	Auth       Auth     `envPrefix:"AUTH_"`
	Database   Database `envPrefix:"PG_"`
	Billing    Billing  `envPrefix:"BILLING_"`
}

// Auth contains session and credential parameters.
type Auth struct {
	// Secret signs session tokens; the service refuses to start without it.
	Secret string `env:"SECRET"`
	// DemoMode accepts any password on login and creates unknown identities
	// on the fly. Keep it off anywhere real accounts exist.
	DemoMode   bool          `env:"DEMO_MODE" envDefault:"true"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`
}

// Database contains identity store connection parameters. An empty DSN runs
// the service on the in-memory store.
type Database struct {
	DSN           string `env:"DSN"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
}

// Billing contains billing provider parameters.
type Billing struct {
	BaseURL             string `env:"BASE_URL" envDefault:"https://api.stripe.com"`
	SecretKey           string `env:"SECRET_KEY"`
	SubscriptionPriceID string `env:"SUBSCRIPTION_PRICE_ID"`
	LifetimePriceID     string `env:"LIFETIME_PRICE_ID"`
	SuccessURL          string `env:"SUCCESS_URL" envDefault:"http://localhost:3000/dashboard?checkout=success"`
	CancelURL           string `env:"CANCEL_URL" envDefault:"http://localhost:3000/pricing?checkout=canceled"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "QD_"}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("QD_AUTH_SECRET is required")
	}
	return &cfg, nil
}

// Production reports whether the service runs in a production-like
// environment (enables the Secure cookie attribute).
func (c *Config) Production() bool {
	return c.Env == "production"
}
