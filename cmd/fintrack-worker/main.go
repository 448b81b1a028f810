package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/summary"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	store := cli.InitStore(context.Background(), logger, cfg)

	var writer sheets.SnapshotWriter
	if cfg.GoogleSpreadsheetID != "" {
		gcfg := gsheet.ConfigFromEnv()
		gcfg.SpreadsheetID = cfg.GoogleSpreadsheetID
		gcfg.SheetName = cfg.GoogleSheetName
		exporter, err := gsheet.New(context.Background(), gcfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			cli.Close(store, nil)
			os.Exit(1)
		}
		writer = exporter
	} else {
		logger.Info("Google Sheets disabled - snapshots kept in memory")
		writer = memory.New()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		cli.Close(store, nil)
		os.Exit(1)
	}
	amqpClient.SetPrefetch(cfg.ExportBatchSize)

	reports := summary.NewService(ledger.NewAccessor(store.Store))
	snapshots := worker.NewSnapshotWorker(reports, writer, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	err = amqpClient.ConsumeTransactionEvents(ctx, snapshots.HandleTransactionEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		cli.Close(store, amqpClient)
		os.Exit(1)
	}

	<-done
	cli.Close(store, amqpClient)
	logger.Info("Worker shutdown complete")
}
