package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	HTTPPort       string
	AppEnv         string
	LogLevel       string
	DatabaseDriver string
	DatabaseURL    string
	JWTSecret      string
	JWTIssuer      string
	SessionTTL     time.Duration
	BcryptCost     int
	ReplyDelay     time.Duration
	RedisURL       string
	CookieSecure   bool
}

// Development reports whether error details may be exposed to clients.
func (c *Config) Development() bool {
	return c.AppEnv == EnvDevelopment
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("APP_ENV", EnvProduction)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite3")
	v.SetDefault("DATABASE_URL", "casedesk.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "casedesk")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REPLY_DELAY", "1500ms")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("COOKIE_SECURE", false)
	v.AutomaticEnv()

	cfg := &Config{
		HTTPPort:       v.GetString("HTTP_PORT"),
		AppEnv:         v.GetString("APP_ENV"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		DatabaseDriver: v.GetString("DATABASE_DRIVER"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTIssuer:      v.GetString("JWT_ISSUER"),
		SessionTTL:     v.GetDuration("SESSION_TTL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		ReplyDelay:     v.GetDuration("REPLY_DELAY"),
		RedisURL:       v.GetString("REDIS_URL"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	switch c.DatabaseDriver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite3 or pgx, got %q", c.DatabaseDriver)
	}
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("APP_ENV must be %s or %s, got %q", EnvDevelopment, EnvProduction, c.AppEnv)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.ReplyDelay < 0 {
		return errors.New("REPLY_DELAY must not be negative")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	return nil
}
