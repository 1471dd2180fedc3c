package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"ledgerlite/internal/amqp"
	"ledgerlite/internal/core"
	"ledgerlite/internal/ledger"
	applog "ledgerlite/internal/log"
)

// EventPublisher delivers ledger events to other processes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger mutations, persistence and event
// publishing. The engine stays the source of truth: events are only sent
// after a change has been committed, and a failed publish never fails the
// change.
type LedgerService struct {
	engine    *ledger.Engine
	store     ledger.SnapshotStore
	publisher EventPublisher
	logger    *slog.Logger

	// loadFailed is set while the last Load did not succeed; the store may
	// still hold data the engine never saw.
	loadFailed atomic.Bool
}

// NewLedgerService wires engine to store. publisher may be nil.
func NewLedgerService(engine *ledger.Engine, store ledger.SnapshotStore, publisher EventPublisher, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		engine:    engine,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Engine exposes the engine for read-only queries.
func (s *LedgerService) Engine() *ledger.Engine { return s.engine }

func (s *LedgerService) AddIncome(ctx context.Context, date core.Date, amount core.Money, category, note string) (core.Transaction, error) {
	tx, err := s.engine.AddIncome(date, amount, category, note)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionAdded, tx))
	return tx, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, date core.Date, amount core.Money, category, note string) (core.Transaction, error) {
	tx, err := s.engine.AddExpense(date, amount, category, note)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionAdded, tx))
	return tx, nil
}

func (s *LedgerService) RemoveTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	tx, err := s.engine.RemoveTransaction(id)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventTransactionRemoved, tx))
	return tx, nil
}

func (s *LedgerService) Undo(ctx context.Context) (ledger.UndoResult, error) {
	res, err := s.engine.Undo()
	if err != nil || !res.Performed {
		return res, err
	}
	s.publish(ctx, amqp.NewTransactionEvent(amqp.EventUndoApplied, res.Transaction))
	return res, nil
}

// Load restores engine state from the store. Until a later Load or an
// Overwrite succeeds, a failed Load makes Save refuse to write.
func (s *LedgerService) Load(ctx context.Context) error {
	if err := s.engine.Load(ctx, s.store); err != nil {
		s.loadFailed.Store(true)
		return err
	}
	s.loadFailed.Store(false)
	return nil
}

// Loaded reports whether the store contents are known to the engine.
func (s *LedgerService) Loaded() bool { return !s.loadFailed.Load() }

// Save flushes engine state to the store. It fails with ErrIO and
// ErrStoreNotLoaded after a failed Load.
func (s *LedgerService) Save(ctx context.Context) error {
	if s.loadFailed.Load() {
		return fmt.Errorf("save ledger: %w: %w", core.ErrIO, core.ErrStoreNotLoaded)
	}
	return s.flush(ctx)
}

// Overwrite flushes engine state even when the last Load failed, replacing
// whatever the store holds.
func (s *LedgerService) Overwrite(ctx context.Context) error {
	if err := s.flush(ctx); err != nil {
		return err
	}
	if s.loadFailed.Swap(false) {
		s.logger.WarnContext(ctx, "Stored ledger overwritten after failed load",
			applog.FieldOperation, applog.OpFlush)
	}
	return nil
}

func (s *LedgerService) flush(ctx context.Context) error {
	if err := s.engine.Flush(ctx, s.store); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewSnapshotSavedEvent(len(s.engine.Transactions())))
	return nil
}

// Revision reports the engine revision, see ledger.Engine.Revision.
func (s *LedgerService) Revision() uint64 { return s.engine.Revision() }

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldEvent, string(ev.Type),
			applog.FieldTransactionID, ev.TransactionID,
			applog.FieldError, err.Error())
	}
}

// Close releases the store and the publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
