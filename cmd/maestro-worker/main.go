package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"maestro/internal/amqp"
	"maestro/internal/config"
	applog "maestro/internal/log"
	"maestro/internal/sheets"
	gsheet "maestro/internal/sheets/google"
	mem "maestro/internal/sheets/memory"
	"maestro/internal/worker"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentWorker,
		Format:    os.Getenv("LOG_FORMAT"),
	})
	applog.SetDefault(logger)

	logger.Info("Starting maestro-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var invoiceLog sheets.InvoiceLogWriter
	switch cfg.InvoiceLogBackend {
	case "sheets":
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		invoiceLog = client
		logger.Info("Logging invoices to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	default:
		invoiceLog = mem.New()
		logger.Info("Logging invoices in memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	reportWorker := worker.NewReportWorker(invoiceLog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeInvoicePaidWithReconnect(gctx, cfg.AMQPURL, func(msg *amqp.InvoicePaidMessage) error {
			return reportWorker.HandleInvoicePaid(gctx, msg)
		})
	})
	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
