package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"finbot/internal/amqp"
	"finbot/internal/cli"
	gsheet "finbot/internal/sheets/google"
	"finbot/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig()
	cli.MustValidate(logger, cfg.ValidateWorker)

	logger.Info("Starting finbot-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds, err := cfg.Credentials()
	if err != nil {
		logger.Error("Failed to read Google credentials", "error", err)
		os.Exit(1)
	}

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:     cfg.GoogleSpreadsheetID,
		TransactionsSheet: cfg.GoogleTransactionsSheet,
		GoalsSheet:        cfg.GoogleGoalsSheet,
		CredentialsJSON:   creds,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(sheetsClient)
	if err := exportWorker.Run(ctx, amqpClient); err != nil {
		logger.Error("Export worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
