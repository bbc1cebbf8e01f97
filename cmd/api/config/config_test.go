package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

var configKeys = []string{
	"ENVIRONMENT", "DATABASE_URL", "TEST_DATABASE_URL", "DATABASE_MIGRATIONS_PATH",
	"STORAGE", "PORT", "HTTP_REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "NOTIFICATIONS_ENABLED", "NOTIFICATIONS_BASE_URL",
	"NOTIFICATIONS_TIMEOUT", "LOG_LEVEL", "LOG_PRETTY",
}

// clearEnv blanks every key New reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)

		cfg, err := New()
		is.NoErr(err)
		is.Equal(cfg.DatabaseURL, defaultDatabaseURL)
		is.Equal(cfg.Storage, StoragePostgres)
		is.Equal(cfg.Port, 8080)
		is.Equal(cfg.MigrationsPath, "migrations")
		is.Equal(cfg.RequestTimeout, time.Duration(0))
		is.Equal(cfg.ShutdownTimeout, 10*time.Second)
		is.Equal(cfg.RateLimitRPS, float64(0))
		is.True(!cfg.NotificationsEnabled)
	})

	t.Run("DATABASE_URL overrides the default outside tests", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://app:secret@db:5432/books")
		t.Setenv("TEST_DATABASE_URL", "postgres://localhost/ignored")

		cfg, err := New()
		is.NoErr(err)
		is.Equal(cfg.DatabaseURL, "postgres://app:secret@db:5432/books")
	})

	t.Run("the test environment selects the test database", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)
		t.Setenv("ENVIRONMENT", "test")
		t.Setenv("DATABASE_URL", "postgres://app:secret@db:5432/books")

		cfg, err := New()
		is.NoErr(err)
		is.Equal(cfg.DatabaseURL, defaultTestDatabaseURL)

		t.Setenv("TEST_DATABASE_URL", "postgres://localhost/other_test")
		cfg, err = New()
		is.NoErr(err)
		is.Equal(cfg.DatabaseURL, "postgres://localhost/other_test")
	})

	t.Run("parses typed values", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)
		t.Setenv("PORT", "9090")
		t.Setenv("STORAGE", "memory")
		t.Setenv("HTTP_REQUEST_TIMEOUT", "3s")
		t.Setenv("RATE_LIMIT_RPS", "2.5")
		t.Setenv("RATE_LIMIT_BURST", "4")
		t.Setenv("NOTIFICATIONS_ENABLED", "true")

		cfg, err := New()
		is.NoErr(err)
		is.Equal(cfg.Port, 9090)
		is.Equal(cfg.Storage, StorageMemory)
		is.Equal(cfg.RequestTimeout, 3*time.Second)
		is.Equal(cfg.RateLimitRPS, 2.5)
		is.Equal(cfg.RateLimitBurst, 4)
		is.True(cfg.NotificationsEnabled)
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		for key, value := range map[string]string{
			"PORT":                  "eighty",
			"HTTP_REQUEST_TIMEOUT":  "5",
			"NOTIFICATIONS_ENABLED": "maybe",
			"STORAGE":               "redis",
		} {
			t.Run(key, func(t *testing.T) {
				is := is.New(t)
				clearEnv(t)
				t.Setenv(key, value)

				_, err := New()
				is.True(err != nil)
			})
		}
	})
}

func TestRedactedDatabaseURL(t *testing.T) {
	is := is.New(t)

	cfg := &Config{DatabaseURL: "postgres://app:secret@db:5432/books"}
	is.Equal(cfg.RedactedDatabaseURL(), "postgres://***@db:5432/books")

	cfg.DatabaseURL = "postgres://localhost/books"
	is.Equal(cfg.RedactedDatabaseURL(), "postgres://localhost/books")
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	is := is.New(t)

	tmp := t.TempDir()
	err := os.WriteFile(filepath.Join(tmp, ".env"), []byte("DATABASE_URL=from_file\nLOG_LEVEL=debug\n"), 0644)
	is.NoErr(err)

	t.Setenv("DATABASE_URL", "from_env")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")

	cwd, err := os.Getwd()
	is.NoErr(err)
	is.NoErr(os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	LoadEnvFiles()

	is.Equal(os.Getenv("DATABASE_URL"), "from_env")
	is.Equal(os.Getenv("LOG_LEVEL"), "debug")
}
