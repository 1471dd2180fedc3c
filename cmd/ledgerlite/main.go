package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerlite/internal/backend"
	"ledgerlite/internal/cli"
	"ledgerlite/internal/config"
	"ledgerlite/internal/console"
	"ledgerlite/internal/core"
	"ledgerlite/internal/ledger"
	applog "ledgerlite/internal/log"
	"ledgerlite/internal/services"
	"ledgerlite/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// lastSaver is implemented by stores that record when they were last written.
type lastSaver interface {
	LastSaved(ctx context.Context) (time.Time, bool, error)
}

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	// Logs go to stderr; stdout belongs to the console.
	boot := cli.SetupLogger(os.Stderr, applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.ConfigureLogger(cfg, os.Stderr, applog.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("ledgerlite stopped with error",
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorType(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger.Root()).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}

	engine, err := ledger.New(
		ledger.WithCurrency(cfg.Currency),
		ledger.WithLogger(logger.Root()),
	)
	if err != nil {
		return errors.Join(err, res.Cleanup())
	}

	svc := services.NewLedgerService(engine, res.Store, res.Publisher, logger.Root())
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", applog.FieldError, err.Error())
		}
	}()

	// A store that cannot be read leaves the ledger empty but usable;
	// corrupt data is refused so it is not overwritten by the next save.
	if err := svc.Load(ctx); err != nil {
		if errors.Is(err, core.ErrCorruptState) {
			return fmt.Errorf("refusing to start: %w", err)
		}
		logger.Warn("Starting with an empty ledger; automatic saves are off until 'save force'",
			applog.FieldError, err.Error())
	}
	logger.Info("Ledger loaded",
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldCount, len(engine.Transactions()),
		"currency", engine.Currency())
	if ls, ok := res.Store.(lastSaver); ok {
		if at, saved, err := ls.LastSaved(ctx); err == nil && saved {
			logger.Info("Previous save", "saved_at", at.Format(time.RFC3339))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	var opts []console.Option
	opts = append(opts, console.WithLogger(logger.Root()))
	if res.Reports != nil {
		opts = append(opts, console.WithSheets(res.Reports))
	}
	con := console.New(svc, os.Stdin, os.Stdout, opts...)

	g.Go(func() error {
		// Leaving the console ends the session.
		defer cancelRun()
		return con.Run(runCtx)
	})

	if cfg.AutosaveInterval > 0 {
		saver := worker.NewAutosaver(svc, worker.AutosaveConfig{
			Interval:     cfg.AutosaveInterval,
			FlushTimeout: shutdownTimeout,
		}, logger.Root())
		g.Go(func() error {
			return saver.Run(runCtx)
		})
	}

	runErr := g.Wait()

	saveCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Save(saveCtx); err != nil {
		if errors.Is(err, core.ErrStoreNotLoaded) {
			logger.Warn("Session not saved, the stored ledger was left untouched")
			return runErr
		}
		return errors.Join(runErr, fmt.Errorf("final save: %w", err))
	}
	logger.Info("Ledger saved, bye")
	return runErr
}
