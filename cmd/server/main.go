/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inspection form engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Build the engine with the built-in catalog and submit policy
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port                       HTTP server port (default: 8080)
  -db                         SQLite database path (default: inspections.db)
                              Use ":memory:" for an in-memory database
  -block-untested-assets      Reject submit while assets are untested
  -block-expired-calibration  Reject readings/submit on expired calibrations

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database, warnings only
  ./server -db="./data/inspections.db"

  # Strict mode: both policy gates block
  ./server -block-untested-assets -block-expired-calibration

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/inspection-engine/api"
	"github.com/warp/inspection-engine/catalog"
	"github.com/warp/inspection-engine/forms"
	"github.com/warp/inspection-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "inspections.db", "SQLite database path")
	blockUntested := flag.Bool("block-untested-assets", false, "reject submit while assets remain untested")
	blockExpiredCal := flag.Bool("block-expired-calibration", false, "reject readings and submit on expired calibrations")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Build engine: the store doubles as the job directory so the
	// server is self-contained.
	engine := forms.NewEngine(store, store, catalog.BuiltIn(), forms.SubmitPolicy{
		BlockUntestedAssets:     *blockUntested,
		BlockExpiredCalibration: *blockExpiredCal,
	})

	handler := api.NewHandler(engine, store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", *port).
			Str("db", *dbPath).
			Bool("block_untested_assets", *blockUntested).
			Bool("block_expired_calibration", *blockExpiredCal).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
