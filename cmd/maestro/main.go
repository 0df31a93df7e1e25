package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"maestro/internal/amqp"
	"maestro/internal/config"
	apphttp "maestro/internal/http"
	applog "maestro/internal/log"
	"maestro/internal/services"
	"maestro/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentApp,
		Format:    os.Getenv("LOG_FORMAT"),
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without a broker the API still works, change events
	// are just not published.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing", "error", err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	cardSvc := services.NewCardService(repo)
	expenseSvc := services.NewExpenseService(repo, publisher)
	invoiceSvc := services.NewInvoiceService(repo, repo, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, cardSvc, expenseSvc, invoiceSvc, apphttp.Options{
		CacheSize:         cfg.CacheSize,
		CacheTTL:          cfg.CacheTTL,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Logger:            logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting maestro server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
