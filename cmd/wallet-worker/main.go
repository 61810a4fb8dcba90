package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"wallet/internal/amqp"
	"wallet/internal/config"
	"wallet/internal/log"
	gsheet "wallet/internal/sheets/google"
	"wallet/internal/storage"
	"wallet/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting wallet-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err,
			"path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, nothing to export")
		return
	}

	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(repo, sheetsClient, cfg.ExportBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Drain any backlog accumulated while the worker was down.
	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", log.FieldError, err)
		// Keep running, the periodic pass retries pending rows.
	}

	g, ctx := errgroup.WithContext(ctx)

	// AMQP consumption is the fast path; the ticker below is the safety net
	// for events lost while the broker or worker was unavailable.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic export only",
				log.FieldError, err)
		} else {
			defer amqpClient.Close()
			g.Go(func() error {
				err := amqpClient.ConsumeTransactionEventsWithRetry(ctx, func(event *amqp.TransactionEvent) error {
					return exportWorker.HandleTransactionEvent(ctx, event)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	} else {
		logger.Info("AMQP disabled - relying on periodic export only")
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := exportWorker.ProcessPendingExports(ctx); err != nil {
					logger.Error("Periodic export failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
