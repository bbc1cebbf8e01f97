package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/books-isbn-service/cmd/api/book"
	"github.com/books-isbn-service/cmd/api/config"
	"github.com/books-isbn-service/cmd/api/database"
	bookhttp "github.com/books-isbn-service/cmd/api/http"
	"github.com/books-isbn-service/cmd/api/inmemory"
	"github.com/books-isbn-service/cmd/api/notifications"
	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	err := run()
	if err != nil {
		log.Error().Err(err).Msg("books service stopped")
		os.Exit(1)
	}
}

func run() error {
	config.LoadEnvFiles()
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogger(cfg)

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	var notifier book.Notifier
	if cfg.NotificationsEnabled {
		notifier = notifications.NewNtfy(cfg.NotificationsBaseURL, cfg.NotificationsTimeout, http.DefaultClient)
	}

	bookService := book.NewService(repo, notifier)
	bookHandler := bookhttp.NewBookHandler(bookService, cfg.RequestTimeout)

	//create and init http server:
	server := bookhttp.NewServer(bookhttp.ServerConfig{
		Port:           cfg.Port,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, bookHandler)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("storage", cfg.Storage).Msg("http server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("unexpected http server error: %w", err)
		}
		close(serverErr)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sc:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	ctx, shutdownRelease := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownRelease()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	log.Info().Msg("graceful shutdown complete")
	return nil
}

/* Opens the storage backend named by the config. The returned func releases it. */
func openRepository(cfg *config.Config) (book.Repository, func(), error) {
	if cfg.Storage == config.StorageMemory {
		store, err := inmemory.NewInMemoryStore()
		if err != nil {
			return nil, nil, err
		}
		log.Warn().Msg("using in-memory storage, data is lost on shutdown")
		return store, func() {}, nil
	}

	//connect to db:
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Str("database_url", cfg.RedactedDatabaseURL()).Msg("connecting to database")
	dbObject, err := database.ConnectDb(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting with db: %w", err)
	}

	//apply migrations:
	store := database.NewStore(dbObject)
	err = database.MigrationUp(store, cfg.MigrationsPath)
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		dbObject.Close()
		return nil, nil, fmt.Errorf("migrating: %w", err)
	}

	return store, func() {
		if err := dbObject.Close(); err != nil {
			log.Error().Err(err).Msg("closing database")
		}
	}, nil
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.LogPretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = logger
}
