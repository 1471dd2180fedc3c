package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlite/internal/amqp"
	"ledgerlite/internal/core"
	"ledgerlite/internal/ledger"
	applog "ledgerlite/internal/log"
	"ledgerlite/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newService(t *testing.T, pub EventPublisher) (*LedgerService, *memory.Store) {
	t.Helper()
	engine, err := ledger.New(ledger.WithClock(func() time.Time {
		return time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	store := memory.New()
	return NewLedgerService(engine, store, pub, applog.Discard().Slog()), store
}

func TestLedgerService_PublishesAfterCommit(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, store := newService(t, pub)

	tx, err := svc.AddIncome(ctx, core.NewDate(2026, time.February, 1), core.MustMoney("100", "RUB"), "SALARY", "")
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, core.NewDate(2026, time.February, 2), core.MustMoney("30", "RUB"), "FOOD", "")
	require.NoError(t, err)
	_, err = svc.Undo(ctx)
	require.NoError(t, err)
	_, err = svc.RemoveTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx))

	assert.Equal(t, []amqp.EventType{
		amqp.EventTransactionAdded,
		amqp.EventTransactionAdded,
		amqp.EventUndoApplied,
		amqp.EventTransactionRemoved,
		amqp.EventSnapshotSaved,
	}, pub.types())
	assert.Equal(t, 1, store.Saves())
}

func TestLedgerService_RejectedChangesPublishNothing(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newService(t, pub)

	_, err := svc.AddExpense(ctx, core.NewDate(2026, time.February, 2), core.MustMoney("-1", "RUB"), "FOOD", "")
	assert.ErrorIs(t, err, core.ErrValidation)

	res, err := svc.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, res.Performed)

	assert.Empty(t, pub.types())
}

func TestLedgerService_PublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newService(t, pub)

	_, err := svc.AddExpense(ctx, core.NewDate(2026, time.February, 2), core.MustMoney("5", "RUB"), "FOOD", "")
	require.NoError(t, err)
	assert.Len(t, svc.Engine().Transactions(), 1)
}

func TestLedgerService_WithoutPublisher(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.AddExpense(context.Background(), core.NewDate(2026, time.February, 2), core.MustMoney("5", "RUB"), "FOOD", "")
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestLedgerService_LoadAndRevision(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, nil)
	_, err := svc.AddExpense(ctx, core.NewDate(2026, time.February, 2), core.MustMoney("5", "RUB"), "FOOD", "")
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx))

	other, err := ledger.New()
	require.NoError(t, err)
	restored := NewLedgerService(other, store, nil, nil)
	before := restored.Revision()
	require.NoError(t, restored.Load(ctx))
	assert.Len(t, restored.Engine().Transactions(), 1)
	assert.Greater(t, restored.Revision(), before)
}

func TestLedgerService_CloseClosesPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newService(t, pub)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}

// unreadableStore holds a persisted ledger but fails every read.
type unreadableStore struct {
	memory.Store
	readErr error
}

func (s *unreadableStore) LoadAll(ctx context.Context) (core.Snapshot, error) {
	if s.readErr != nil {
		return core.Snapshot{}, s.readErr
	}
	return s.Store.LoadAll(ctx)
}

func persistedSnapshot(t *testing.T, n int) core.Snapshot {
	t.Helper()
	snap := core.Snapshot{Categories: core.DefaultCategories()}
	for i := 0; i < n; i++ {
		snap.Transactions = append(snap.Transactions, core.Transaction{
			ID:       uuid.New(),
			Kind:     core.KindExpense,
			Date:     core.NewDate(2026, time.January, 10),
			Amount:   core.MustMoney("10", "RUB"),
			Category: "FOOD",
		})
	}
	return snap
}

func TestLedgerService_FailedLoadDoesNotOverwriteStore(t *testing.T) {
	ctx := context.Background()
	store := &unreadableStore{readErr: fmt.Errorf("%w: database is locked", core.ErrIO)}
	require.NoError(t, store.SaveAll(ctx, persistedSnapshot(t, 42)))

	engine, err := ledger.New()
	require.NoError(t, err)
	pub := &recordingPublisher{}
	svc := NewLedgerService(engine, store, pub, applog.Discard().Slog())

	err = svc.Load(ctx)
	require.ErrorIs(t, err, core.ErrIO)
	assert.False(t, svc.Loaded())

	err = svc.Save(ctx)
	assert.ErrorIs(t, err, core.ErrIO)
	assert.ErrorIs(t, err, core.ErrStoreNotLoaded)

	stored, err := store.Store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.Transactions, 42)
	assert.Equal(t, 1, store.Saves(), "only the setup write reached the store")
	assert.Empty(t, pub.types())
}

func TestLedgerService_OverwriteAfterFailedLoad(t *testing.T) {
	ctx := context.Background()
	store := &unreadableStore{readErr: errors.New("read timeout")}
	require.NoError(t, store.SaveAll(ctx, persistedSnapshot(t, 3)))

	engine, err := ledger.New(ledger.WithClock(func() time.Time {
		return time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	svc := NewLedgerService(engine, store, nil, applog.Discard().Slog())
	require.Error(t, svc.Load(ctx))

	_, err = svc.AddExpense(ctx, core.NewDate(2026, time.February, 2), core.MustMoney("5", "RUB"), "FOOD", "")
	require.NoError(t, err)

	require.NoError(t, svc.Overwrite(ctx))
	assert.True(t, svc.Loaded())

	stored, err := store.Store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.Transactions, 1)

	// Regular saves work again once the store has been replaced.
	require.NoError(t, svc.Save(ctx))
	assert.Equal(t, 3, store.Saves())
}

func TestLedgerService_SuccessfulLoadClearsFailure(t *testing.T) {
	ctx := context.Background()
	store := &unreadableStore{readErr: errors.New("busy")}
	engine, err := ledger.New()
	require.NoError(t, err)
	svc := NewLedgerService(engine, store, nil, applog.Discard().Slog())

	require.Error(t, svc.Load(ctx))
	require.ErrorIs(t, svc.Save(ctx), core.ErrStoreNotLoaded)

	store.readErr = nil
	require.NoError(t, svc.Load(ctx))
	assert.True(t, svc.Loaded())
	assert.NoError(t, svc.Save(ctx))
}
