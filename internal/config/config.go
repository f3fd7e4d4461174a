package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Store    string // "postgres" or "memory"
	Database DatabaseConfig
	Auth     AuthConfig
	Notify   NotifyConfig
	Exchange ExchangeConfig
	// ReconcileSchedule is a cron spec for the ledger reconciliation sweep;
	// empty disables it.
	ReconcileSchedule string
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// AuthConfig holds the JWT verification settings
type AuthConfig struct {
	JWTSecret string
}

// NotifyConfig holds the notification queue settings
type NotifyConfig struct {
	RedisAddr string // empty means notifications are stored inline
	Timeout   time.Duration
}

// ExchangeConfig tunes the exchange engine
type ExchangeConfig struct {
	ConflictRetries int
}

// DSN returns the pgx connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// Load reads configuration from a .env file (if present) and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	storeDriver := getEnv("STORE_DRIVER", "postgres")
	if storeDriver != "postgres" && storeDriver != "memory" {
		return nil, fmt.Errorf("invalid STORE_DRIVER: '%s' (must be 'postgres' or 'memory')", storeDriver)
	}

	dbPort, err := getEnvAsInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvAsInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	retries, err := getEnvAsInt("EXCHANGE_CONFLICT_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, fmt.Errorf("invalid EXCHANGE_CONFLICT_RETRIES: %d (must be >= 0)", retries)
	}

	timeout, err := time.ParseDuration(getEnv("NOTIFY_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEOUT: %w", err)
	}

	schedule := strings.TrimSpace(getEnv("RECONCILE_SCHEDULE", ""))
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid RECONCILE_SCHEDULE: %w", err)
		}
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		if appMode == "prod" {
			return nil, fmt.Errorf("JWT_SECRET must be set in prod mode")
		}
		secret = "dev-secret"
	}

	cfg := &Config{
		AppMode: appMode,
		Port:    getEnv("PORT", "8080"),
		Store:   storeDriver,
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "skillswap"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(maxConns),
		},
		Auth:              AuthConfig{JWTSecret: secret},
		Notify:            NotifyConfig{RedisAddr: getEnv("REDIS_ADDR", ""), Timeout: timeout},
		Exchange:          ExchangeConfig{ConflictRetries: retries},
		ReconcileSchedule: schedule,
	}

	log.Printf("Configuration loaded [MODE: %s, STORE: %s]", cfg.AppMode, cfg.Store)
	return cfg, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, raw)
	}
	return v, nil
}
