// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
loaded first through 'joho/godotenv' when present; real environment variables
always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis) holding issued tokens
	RedisURL string `env:"REDIS_URL,required"`

	// Cryptographic keys for access token signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Token lifetimes
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"3h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	// Lockout and recovery windows
	MaxLoginRetryLimit int           `env:"MAX_LOGIN_RETRY_LIMIT" envDefault:"3"`
	LoginReactiveTime  time.Duration `env:"LOGIN_REACTIVE_TIME"   envDefault:"20m"`
	OTPTTL             time.Duration `env:"OTP_TTL"               envDefault:"20m"`

	// ClientURL prefixes password reset links sent by email.
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:3000/"`

	// Notification delivery
	Notify NotifyConfig `envPrefix:"NOTIFY_"`
	SMTP   SMTPConfig   `envPrefix:"SMTP_"`
	NATS   NATSConfig   `envPrefix:"NATS_"`

	// Federated identity providers
	SSO SSOConfig

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// NotifyConfig selects the outbound notification transport.
type NotifyConfig struct {
	// Driver is one of "log", "smtp" or "nats".
	Driver  string        `env:"DRIVER"  envDefault:"log"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// SMTPConfig configures the mail relay used for reset links.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"     envDefault:"no-reply@toeic.app"`
}

// NATSConfig configures the broker used when a downstream mailer consumes notifications.
type NATSConfig struct {
	URL     string `env:"URL"     envDefault:"nats://127.0.0.1:4222"`
	Subject string `env:"SUBJECT" envDefault:"notifications.email"`
}

// SSOConfig configures the federated identity verifiers.
type SSOConfig struct {
	FirebaseProjectID string        `env:"FIREBASE_PROJECT_ID"`
	GoogleClientID    string        `env:"GOOGLE_CLIENT_ID"`
	FacebookGraphURL  string        `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com"`
	Timeout           time.Duration `env:"SSO_TIMEOUT"        envDefault:"5s"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Pull in a local .env file for development; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces cross-field rules env tags cannot express.
func (c *Config) validate() error {
	if c.MaxLoginRetryLimit < 1 {
		return fmt.Errorf("config: MAX_LOGIN_RETRY_LIMIT must be at least 1")
	}

	switch c.Notify.Driver {
	case "log", "nats":
	case "smtp":
		if c.SMTP.Host == "" {
			return fmt.Errorf("config: SMTP_HOST is required when NOTIFY_DRIVER=smtp")
		}
	default:
		return fmt.Errorf("config: unknown NOTIFY_DRIVER %q", c.Notify.Driver)
	}

	if !strings.HasSuffix(c.ClientURL, "/") {
		c.ClientURL += "/"
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsAllowedOrigin reports whether origin is listed in ALLOWED_ORIGINS.
func (c *Config) IsAllowedOrigin(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}
	return false
}
