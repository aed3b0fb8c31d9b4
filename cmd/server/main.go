/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bookstock ingestion server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment (.env supported)
  2. Initialize SQLite store
  3. Start the parse worker pool
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the worker pool
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  BOOKSTOCK_DB=./data/bookstock.db ./server

  # Run with in-memory database on a different port
  BOOKSTOCK_DB=:memory: BOOKSTOCK_PORT=3000 ./server

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/bookstock/api"
	"github.com/warp/bookstock/catalog"
	"github.com/warp/bookstock/config"
	"github.com/warp/bookstock/ingest"
	"github.com/warp/bookstock/report"
	"github.com/warp/bookstock/store/sqlite"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize store
	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to initialize database")
	}
	defer st.Close()

	// Start the parse worker pool
	pool := ingest.NewPool(ingest.PoolOptions{
		Min:         cfg.PoolMin,
		Max:         cfg.PoolMax,
		IdleTimeout: cfg.PoolIdle,
		Logger:      log,
	})
	pool.Start()
	defer pool.Stop()

	// Wire handler
	importer := catalog.NewImporter(pool, st, log)
	reporter := report.NewReporter(st)
	handler := api.NewHandler(importer, reporter, st, cfg.MaxUploadBytes, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Port).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}
