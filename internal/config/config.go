// Package config loads per-binary configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type API struct {
	Port            uint16        `env:"APP_PORT" env-default:"8080"`
	LogLevel        string        `env:"APP_LOG_LEVEL" env-default:"info"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" env-default:"10s"`

	PostgresDSN string `env:"PG_DSN" env-required:"true"`

	// AMQPURL is optional; when empty, booking lifecycle events are not
	// published.
	AMQPURL string `env:"AMQP_URL"`

	Redis Redis
	SMTP  SMTP

	VerificationTTL time.Duration `env:"VERIFICATION_CODE_TTL" env-default:"10m"`
}

type Migrator struct {
	PostgresDSN string `env:"PG_DSN" env-required:"true"`
	LogLevel    string `env:"APP_LOG_LEVEL" env-default:"info"`
	AppEnv      string `env:"APP_ENV" env-default:"PROD"`
}

type Redis struct {
	// Addr is optional; when empty, the verification-code endpoints are
	// not mounted.
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type SMTP struct {
	Addr string `env:"SMTP_ADDR" env-default:"localhost:25"`
	From string `env:"SMTP_FROM" env-default:"no-reply@stakebook.app"`
}

// Load fills cfg from a local .env file when one exists, then from the
// process environment.
func Load(cfg any) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := cleanenv.ReadConfig(".env", cfg); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}

		return nil
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	return nil
}
