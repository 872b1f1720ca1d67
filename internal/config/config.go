package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string `env:"DATABASE_URL,required" validate:"required"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`

	AuthSigningKey string `env:"AUTH_SIGNING_KEY,required" validate:"required,min=32"`

	PolicyFile string `env:"POLICY_FILE"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`
	MetricsCacheTTLSecs   int    `env:"METRICS_CACHE_TTL_SECONDS" envDefault:"60" validate:"min=0,max=3600"`

	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"none" validate:"omitempty,oneof=none resend"`
	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"required_if=EmailProvider resend,omitempty,email"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	LogFile   string     `env:"LOG_FILE"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	// Local dev convenience; production relies on real environment variables.
	_ = godotenv.Load()

	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	key := strings.TrimSpace(c.StripeSecretKey)
	if key != "" && !strings.HasPrefix(key, "sk_") && !strings.HasPrefix(key, "rk_") {
		return fmt.Errorf("STRIPE_SECRET_KEY must be a secret key, not a publishable key")
	}

	return nil
}
