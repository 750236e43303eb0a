// Package cli provides common CLI initialization utilities shared by
// cmd/debtbook, cmd/debtbook-worker and cmd/debtbook-report.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"debtbook/internal/config"
	applog "debtbook/internal/log"
	"debtbook/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging at the level named by
// LOG_LEVEL and sets it as the default logger.
func SetupLogger(component string) *applog.Logger {
	return SetupLoggerTo(component, os.Stdout)
}

// SetupLoggerTo is SetupLogger writing to w. Commands that print results on
// stdout log to stderr.
func SetupLoggerTo(component string, w io.Writer) *applog.Logger {
	level := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.New(applog.Config{
		Level:     level,
		Component: component,
		Handler:   slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.WithComponent(applog.ComponentStorage).Error("Failed to initialize SQLite repository",
			applog.FieldOperation, applog.OpStartup,
			applog.FieldError, err,
			"path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
	}()
	return ctx, stop
}

// ShutdownContext bounds cleanup after the main context is gone.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
