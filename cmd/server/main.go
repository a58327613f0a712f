/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and environment (config.Load)
  2. Build the zap logger
  3. Load the companies file
  4. Open the SQLite store and seed configured holidays
  5. Create missing company documents
  6. Start the month scheduler
  7. Start the HTTP server with graceful shutdown

ENVIRONMENT:
  PORT            HTTP server port (default: 8080)
  DB_PATH         SQLite database path (default: ./payroll.db)
                  Use ":memory:" for an in-memory database
  COMPANIES_FILE  Companies YAML (default: search for config/companies.yaml)
  LOG_LEVEL       debug, info, warn, error (default: info)
  APP_ENV         development or production (default: development)
  CORS_ORIGINS    Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/: Environment and companies file
  - store/sqlite/sqlite.go: Document, backup and holiday storage
*/
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

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "payroll-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	companies, err := config.LoadCompanies(cfg.CompaniesFile)
	if err != nil {
		return fmt.Errorf("load companies: %w", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedHolidays(ctx, companies.Holidays()); err != nil {
		return fmt.Errorf("seed holidays: %w", err)
	}

	// Initialize handler
	handler := api.NewHandler(companies, store, logger)
	if err := handler.InitializeDocuments(ctx); err != nil {
		return err
	}

	scheduler := api.NewMonthScheduler(handler)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(handler, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Env),
			zap.Int("companies", len(companies.List())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
