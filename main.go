// The roamledger API server: a thin CRUD layer over PostgreSQL that issues
// the remote identifiers and session cookies the offline-first client syncs
// against. No sync logic lives here; the client owns reconciliation.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/roamledger/roamledger/config"
	"github.com/roamledger/roamledger/db"
	"github.com/roamledger/roamledger/handlers"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/router"
	"github.com/roamledger/roamledger/services"
	"github.com/roamledger/roamledger/store/postgres"
)

func main() {
	// Missing .env is fine; configuration falls back to real env vars.
	_ = godotenv.Load()

	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tripStore := postgres.NewPgTripStore(pool)
	expenseStore := postgres.NewPgExpenseStore(pool)

	var archiver handlers.ReceiptArchiver
	if cfg.ReceiptArchive.Enabled {
		archive, err := services.NewReceiptArchive(ctx, &cfg.ReceiptArchive)
		if err != nil {
			log.Fatalf("Failed to initialize receipt archive: %v", err)
		}
		archiver = archive
	}

	engine := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		SessionHandler: handlers.NewSessionHandler(&cfg.Server),
		TripHandler:    handlers.NewTripHandler(tripStore),
		ExpenseHandler: handlers.NewExpenseHandler(expenseStore, archiver),
		HealthHandler:  handlers.NewHealthHandler(pool, cfg.Server.Version),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Server starting", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
}
