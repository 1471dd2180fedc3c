package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ledgerlite/internal/amqp"
	applog "ledgerlite/internal/log"
	gsheet "ledgerlite/internal/sheets/google"
	"ledgerlite/internal/storage"
	"ledgerlite/internal/storage/jsonfile"
	"ledgerlite/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend opens the snapshot store and the optional collaborators.
// Only a store failure is fatal; AMQP and Sheets problems are logged and the
// ledger runs without them.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &BackendResult{}
	var closers []io.Closer

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Store = repo
		closers = append(closers, repo)
		f.logger.Info("Initialized SQLite backend", applog.FieldPath, config.SQLiteDBPath)
	case JSONBackend:
		res.Store = jsonfile.New(config.JSONDataPath)
		f.logger.Info("Initialized JSON file backend", applog.FieldPath, config.JSONDataPath)
	case MemoryBackend:
		res.Store = memory.New()
		f.logger.Warn("Initialized memory backend, data will not survive a restart")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err.Error())
		} else {
			res.Publisher = client
			closers = append(closers, client)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if config.GoogleSpreadsheetID != "" {
		sheets, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleReportSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize Google Sheets client, sheet export disabled", applog.FieldError, err.Error())
		} else {
			res.Reports = sheets
			f.logger.Info("Initialized Google Sheets report export")
		}
	}

	res.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}
