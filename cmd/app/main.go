package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptopay/internal/config"
	"cryptopay/internal/db"
	"cryptopay/internal/logger"
	"cryptopay/internal/server"

	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init()
	logger.Info("Starting cryptopay application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if cfg.OxaPayMerchantKey == "" || cfg.OxaPayPayoutKey == "" {
		logger.Fatalf("OXAPAY_MERCHANT_API_KEY and OXAPAY_PAYOUT_API_KEY must be set")
	}
	if cfg.OxaPayWebhookSecret == "" {
		logger.Fatalf("OXAPAY_WEBHOOK_SECRET must be set")
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, "migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Dedupe of webhook redeliveries degrades gracefully without
		// Redis; the conditional updates keep the ledger correct.
		logger.Warnf("Redis unavailable at %s: %v", cfg.RedisAddr, err)
	}

	srv := server.New(database, rdb, cfg)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
