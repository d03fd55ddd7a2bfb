package main

import (
	"context"
	"errors"
	"os"

	"contahogar/internal/amqp"
	"contahogar/internal/backend"
	"contahogar/internal/cli"
	"contahogar/internal/config"
	applog "contahogar/internal/log"
	"contahogar/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting contahogar-worker", applog.FieldOperation, applog.OpStartup)

	journal := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer journal.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	target, err := backend.NewGoogleConnector(backendCfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets connector", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets target configured",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	syncWorker := worker.NewSyncWorker(journal, target, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check", applog.FieldOperation, applog.OpSync)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// The poller retries; a Sheets outage at boot is not fatal.
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			return client.ConsumeRowsAppended(gctx, syncWorker.HandleRowsAppended)
		})
	} else {
		logger.Info("AMQP disabled, relying on periodic sync", "interval", cfg.SyncInterval)
	}

	g.Go(func() error {
		return syncWorker.Poll(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeInternal)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
