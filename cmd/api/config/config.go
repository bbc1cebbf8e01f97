package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const (
	defaultDatabaseURL     = "postgres://localhost/books?sslmode=disable"
	defaultTestDatabaseURL = "postgres://localhost/books_test?sslmode=disable"
)

const environmentENV = "ENVIRONMENT"

type Config struct {
	Environment          string
	DatabaseURL          string
	MigrationsPath       string
	Storage              string
	Port                 int
	RequestTimeout       time.Duration
	ShutdownTimeout      time.Duration
	RateLimitRPS         float64
	RateLimitBurst       int
	NotificationsEnabled bool
	NotificationsBaseURL string
	NotificationsTimeout time.Duration
	LogLevel             string
	LogPretty            bool
}

// LoadEnvFiles reads .env files without overriding variables already present
// in the environment.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// New builds the configuration from the environment. ENVIRONMENT=test selects
// the test database; anything else uses DATABASE_URL.
func New() (*Config, error) {
	cfg := &Config{
		Environment:          os.Getenv(environmentENV),
		MigrationsPath:       getEnv("DATABASE_MIGRATIONS_PATH", "migrations"),
		Storage:              getEnv("STORAGE", StoragePostgres),
		Port:                 8080,
		ShutdownTimeout:      10 * time.Second,
		NotificationsBaseURL: getEnv("NOTIFICATIONS_BASE_URL", "https://ntfy.sh/books"),
		NotificationsTimeout: 2 * time.Second,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	if cfg.Environment == "test" {
		cfg.DatabaseURL = getEnv("TEST_DATABASE_URL", defaultTestDatabaseURL)
	} else {
		cfg.DatabaseURL = getEnv("DATABASE_URL", defaultDatabaseURL)
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationEnv("HTTP_REQUEST_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.NotificationsEnabled, err = boolEnv("NOTIFICATIONS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.NotificationsTimeout, err = durationEnv("NOTIFICATIONS_TIMEOUT", cfg.NotificationsTimeout); err != nil {
		return nil, err
	}
	if cfg.LogPretty, err = boolEnv("LOG_PRETTY", false); err != nil {
		return nil, err
	}

	switch cfg.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("config: STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}

	return cfg, nil
}

// RedactedDatabaseURL hides the credentials of DatabaseURL for logging.
func (c *Config) RedactedDatabaseURL() string {
	const marker = "://"
	start := strings.Index(c.DatabaseURL, marker)
	if start < 0 {
		return c.DatabaseURL
	}
	start += len(marker)
	end := strings.Index(c.DatabaseURL[start:], "@")
	if end < 0 {
		return c.DatabaseURL
	}
	return c.DatabaseURL[:start] + "***" + c.DatabaseURL[start+end:]
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return i, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

// durationEnv expects a unit suffix, like "5s".
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
