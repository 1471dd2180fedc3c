// Command ledger-events follows the ledger event stream and logs every
// change published by ledgerlite.
package main

import (
	"context"
	"errors"
	"os"

	"ledgerlite/internal/amqp"
	"ledgerlite/internal/cli"
	applog "ledgerlite/internal/log"
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(os.Stdout, applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.ConfigureLogger(cfg, os.Stdout, applog.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorTypeNetwork)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	logger.Info("Following ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = client.ConsumeLedgerEvents(ctx, func(ev *amqp.LedgerEvent) error {
		logger.Info("Ledger event",
			applog.FieldEvent, string(ev.Type),
			applog.FieldTransactionID, ev.TransactionID,
			applog.FieldKind, ev.Kind,
			applog.FieldDate, ev.Date,
			applog.FieldAmount, ev.Amount,
			applog.FieldCategory, ev.Category,
			applog.FieldCount, ev.Transactions)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumer stopped",
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorType(err))
		os.Exit(1)
	}
	logger.Info("Event consumer stopped")
}
