// Package storage persists ledger snapshots in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerlite/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the full ledger state in one SQLite file. SaveAll
// replaces every row inside a single transaction so a reader never sees a
// partial snapshot.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db directory: %v", core.ErrIO, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite database: %v", core.ErrIO, err)
	}
	// One writer at a time; SQLite serialises them anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", core.ErrIO, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadAll reads the persisted snapshot. Rows that cannot be decoded are
// reported as core.ErrCorruptState.
func (r *SQLiteRepository) LoadAll(ctx context.Context) (core.Snapshot, error) {
	catRows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: list categories: %v", core.ErrIO, err)
	}
	txRows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: list transactions: %v", core.ErrIO, err)
	}
	budgetRows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: list budgets: %v", core.ErrIO, err)
	}

	snap := core.Snapshot{
		Categories:   make([]core.Category, 0, len(catRows)),
		Transactions: make([]core.Transaction, 0, len(txRows)),
		Budgets:      make([]core.Budget, 0, len(budgetRows)),
	}
	for _, row := range catRows {
		snap.Categories = append(snap.Categories, core.Category{Code: row.Code, Name: row.Name})
	}
	for _, row := range txRows {
		tx, err := decodeTransaction(row)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("%w: transaction row %d: %v", core.ErrCorruptState, row.Seq, err)
		}
		snap.Transactions = append(snap.Transactions, tx)
	}
	for _, row := range budgetRows {
		b, err := decodeBudget(row)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("%w: budget row %d: %v", core.ErrCorruptState, row.Seq, err)
		}
		snap.Budgets = append(snap.Budgets, b)
	}

	slog.DebugContext(ctx, "Snapshot loaded from SQLite",
		"categories", len(snap.Categories),
		"transactions", len(snap.Transactions),
		"budgets", len(snap.Budgets))
	return snap, nil
}

// SaveAll replaces the stored snapshot atomically.
func (r *SQLiteRepository) SaveAll(ctx context.Context, snap core.Snapshot) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", core.ErrIO, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	q := r.queries.WithTx(tx)
	if err = r.replace(ctx, q, snap); err != nil {
		return fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit snapshot: %v", core.ErrIO, err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite", "transactions", len(snap.Transactions))
	return nil
}

func (r *SQLiteRepository) replace(ctx context.Context, q *Queries, snap core.Snapshot) error {
	if err := q.DeleteAllBudgets(ctx); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}
	if err := q.DeleteAllTransactions(ctx); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if err := q.DeleteAllCategories(ctx); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}

	for _, c := range snap.Categories {
		if err := q.InsertCategory(ctx, InsertCategoryParams{Code: c.Code, Name: c.Name}); err != nil {
			return fmt.Errorf("insert category %s: %w", c.Code, err)
		}
	}
	for _, t := range snap.Transactions {
		err := q.InsertTransaction(ctx, InsertTransactionParams{
			ID:       t.ID.String(),
			Kind:     string(t.Kind),
			Date:     t.Date.String(),
			Amount:   t.Amount.Amount().StringFixed(core.Scale),
			Currency: t.Amount.Currency(),
			Category: t.Category,
			Note:     t.Note,
		})
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	for _, b := range snap.Budgets {
		err := q.InsertBudget(ctx, InsertBudgetParams{
			Period:      b.Period.String(),
			Category:    b.Category,
			LimitAmount: b.Limit.Amount().StringFixed(core.Scale),
			Currency:    b.Limit.Currency(),
		})
		if err != nil {
			return fmt.Errorf("insert budget %s %s: %w", b.Period, b.Category, err)
		}
	}
	if err := q.UpsertSnapshotMeta(ctx, r.now().UTC(), int64(len(snap.Transactions))); err != nil {
		return fmt.Errorf("update snapshot meta: %w", err)
	}
	return nil
}

// LastSaved returns when SaveAll last succeeded. ok is false if it never has.
func (r *SQLiteRepository) LastSaved(ctx context.Context) (time.Time, bool, error) {
	meta, err := r.queries.GetSnapshotMeta(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: read snapshot meta: %v", core.ErrIO, err)
	}
	return meta.SavedAt, true, nil
}

func decodeTransaction(row TransactionRow) (core.Transaction, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("id: %w", err)
	}
	kind, err := core.ParseKind(row.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := decodeMoney(row.Amount, row.Currency)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:       id,
		Kind:     kind,
		Date:     date,
		Amount:   amount,
		Category: row.Category,
		Note:     row.Note,
	}, nil
}

func decodeBudget(row BudgetRow) (core.Budget, error) {
	period, err := core.ParsePeriod(row.Period)
	if err != nil {
		return core.Budget{}, err
	}
	limit, err := decodeMoney(row.LimitAmount, row.Currency)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{Period: period, Category: row.Category, Limit: limit}, nil
}

func decodeMoney(amount, currency string) (core.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, amount)
	}
	return core.NewMoney(d, currency)
}
