// Package ledger owns the in-memory ledger state: categories, transactions,
// budgets and the undo history, and every mutation applied to them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerlite/internal/core"
	applog "ledgerlite/internal/log"
	"ledgerlite/internal/report"
)

// DefaultCurrency is the ledger currency when none is configured.
const DefaultCurrency = "RUB"

// SnapshotStore persists and restores full ledger state.
type SnapshotStore interface {
	LoadAll(ctx context.Context) (core.Snapshot, error)
	SaveAll(ctx context.Context, snapshot core.Snapshot) error
}

// UndoResult describes what Undo did.
type UndoResult struct {
	Performed   bool
	Action      Compensation
	Transaction core.Transaction
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCurrency sets the ledger currency. Every amount must use it.
func WithCurrency(code string) Option {
	return func(e *Engine) { e.currency = code }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// Engine is the single entry point for ledger mutations. It is safe for
// concurrent use.
type Engine struct {
	mu      sync.RWMutex
	flushMu sync.Mutex

	currency string
	now      func() time.Time
	logger   *slog.Logger

	categories   *CategoryRegistry
	transactions *TransactionStore
	budgets      *BudgetRegistry
	undo         *UndoStack
	reports      *report.Aggregator

	// revision counts committed mutations.
	revision uint64
}

// New creates an engine seeded with the default categories.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		currency: DefaultCurrency,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	code, err := core.NormalizeCurrency(e.currency)
	if err != nil {
		return nil, fmt.Errorf("ledger currency: %w", err)
	}
	e.currency = code
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.logger = e.logger.With(applog.FieldComponent, applog.ComponentLedger)

	e.transactions = NewTransactionStore()
	e.budgets = NewBudgetRegistry()
	e.categories = NewCategoryRegistry(categoryRefs{e.transactions, e.budgets})
	e.undo = NewUndoStack(UndoCapacity)
	e.reports = report.NewAggregator(e, e.currency, e.now)
	e.categories.SeedDefaults()
	return e, nil
}

// categoryRefs counts both transactions and budgets as references.
type categoryRefs struct {
	tx      *TransactionStore
	budgets *BudgetRegistry
}

func (r categoryRefs) ReferencesCategory(code string) bool {
	return r.tx.ReferencesCategory(code) || r.budgets.ReferencesCategory(code)
}

// Currency returns the ledger currency code.
func (e *Engine) Currency() string { return e.currency }

// Today is the current date according to the engine clock.
func (e *Engine) Today() core.Date { return core.DateOf(e.now()) }

// AddIncome records an income.
func (e *Engine) AddIncome(date core.Date, amount core.Money, category, note string) (core.Transaction, error) {
	return e.add(core.KindIncome, date, amount, category, note)
}

// AddExpense records an expense, rejecting it with *core.BudgetExceededError
// when it would overrun the month's budget for its category.
func (e *Engine) AddExpense(date core.Date, amount core.Money, category, note string) (core.Transaction, error) {
	return e.add(core.KindExpense, date, amount, category, note)
}

func (e *Engine) add(kind core.Kind, date core.Date, amount core.Money, category, note string) (core.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.newTransaction(kind, date, amount, category, note)
	if err != nil {
		e.logger.Warn("transaction rejected",
			applog.FieldKind, string(kind),
			applog.FieldCategory, category,
			applog.FieldError, err.Error())
		return core.Transaction{}, err
	}
	if tx.IsExpense() {
		if err := e.checkBudget(tx); err != nil {
			e.logger.Warn("expense rejected by budget",
				applog.FieldCategory, tx.Category,
				applog.FieldAmount, tx.Amount.String(),
				applog.FieldError, err.Error())
			return core.Transaction{}, err
		}
	}

	stored, err := e.transactions.Insert(tx)
	if err != nil {
		return core.Transaction{}, err
	}
	e.revision++
	e.undo.Push(Compensation{
		TransactionID: stored.ID,
		Description:   fmt.Sprintf("remove %s %s %s", stored.Kind.Label(), stored.Amount, stored.Category),
	})

	e.logger.Debug("transaction recorded", applog.NewFields().WithTransaction(stored).ToSlice()...)
	return stored, nil
}

func (e *Engine) newTransaction(kind core.Kind, date core.Date, amount core.Money, category, note string) (core.Transaction, error) {
	if err := date.Validate(); err != nil {
		return core.Transaction{}, core.NewValidationError("date", "date is required", err)
	}
	if date.IsAfter(e.Today()) {
		return core.Transaction{}, core.NewValidationError("date", fmt.Sprintf("%s is in the future", date), core.ErrInvalidDate)
	}
	if amount.Currency() != e.currency {
		return core.Transaction{}, core.NewValidationError("amount",
			fmt.Sprintf("currency %q does not match ledger currency %s", amount.Currency(), e.currency),
			core.ErrIncompatibleCurrency)
	}
	c, ok := e.categories.Find(category)
	if !ok {
		return core.Transaction{}, core.NewValidationError("category", fmt.Sprintf("unknown category %q", category), nil)
	}

	tx := core.Transaction{
		Kind:     kind,
		Date:     date,
		Amount:   amount,
		Category: c.Code,
		Note:     note,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (e *Engine) checkBudget(tx core.Transaction) error {
	period := tx.Date.Period()
	b, ok := e.budgets.Find(period, tx.Category)
	if !ok {
		return nil
	}
	spent, err := e.transactions.SpentIn(period, tx.Category, e.currency)
	if err != nil {
		return err
	}
	total, err := spent.Add(tx.Amount)
	if err != nil {
		return err
	}
	exceeded, err := e.budgets.IsExceeded(period, tx.Category, total)
	if err != nil {
		return err
	}
	if exceeded {
		return &core.BudgetExceededError{
			Period:    period,
			Category:  tx.Category,
			Limit:     b.Limit,
			Spent:     spent,
			Attempted: tx.Amount,
		}
	}
	return nil
}

// RemoveTransaction deletes a transaction. It is not undoable.
func (e *Engine) RemoveTransaction(id uuid.UUID) (core.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.transactions.Delete(id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	e.revision++
	e.logger.Debug("transaction removed", applog.FieldTransactionID, id.String())
	return tx, nil
}

// Undo reverts the most recent add still on the undo stack. An empty stack
// is reported with Performed false and no error.
func (e *Engine) Undo() (UndoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	action, ok := e.undo.Pop()
	if !ok {
		return UndoResult{}, nil
	}
	tx, ok := e.transactions.Delete(action.TransactionID)
	if !ok {
		return UndoResult{Action: action}, fmt.Errorf("undo %s: transaction %s: %w",
			action.Description, action.TransactionID, core.ErrNotFound)
	}
	e.revision++
	e.logger.Debug("undo applied",
		applog.FieldTransactionID, tx.ID.String(),
		applog.FieldUndoDepth, e.undo.Len())
	return UndoResult{Performed: true, Action: action, Transaction: tx}, nil
}

// Revision increases with every committed mutation. Callers compare two
// readings to detect changes.
func (e *Engine) Revision() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.revision
}

// UndoDepth returns how many actions can currently be undone.
func (e *Engine) UndoDepth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.undo.Len()
}

func (e *Engine) Transaction(id uuid.UUID) (core.Transaction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.transactions.Find(id)
}

// Transactions returns a copy of every transaction in insertion order.
func (e *Engine) Transactions() []core.Transaction {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.transactions.All()
}

// Balance is total income minus total expense over all transactions.
func (e *Engine) Balance() (core.Money, error) {
	_, _, balance, err := report.Totals(e.Transactions(), e.currency)
	return balance, err
}

func (e *Engine) TotalIncome() (core.Money, error) {
	income, _, _, err := report.Totals(e.Transactions(), e.currency)
	return income, err
}

func (e *Engine) TotalExpense() (core.Money, error) {
	_, expense, _, err := report.Totals(e.Transactions(), e.currency)
	return expense, err
}

// AddCategory registers a new category.
func (e *Engine) AddCategory(code, name string) (core.Category, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.categories.Add(code, name)
	if err != nil {
		return core.Category{}, err
	}
	e.revision++
	e.logger.Debug("category added", applog.FieldCategory, c.Code)
	return c, nil
}

func (e *Engine) Category(code string) (core.Category, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.categories.Find(code)
}

func (e *Engine) Categories() []core.Category {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.categories.All()
}

// RemoveCategory deletes a category that no transaction or budget uses.
func (e *Engine) RemoveCategory(code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.categories.Remove(code); err != nil {
		return err
	}
	e.revision++
	return nil
}

// SetBudget sets the spending limit of category for period. A budget that
// already exists must be removed first.
func (e *Engine) SetBudget(period core.Period, category string, limit core.Money) (core.Budget, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.categories.Find(category)
	if !ok {
		return core.Budget{}, core.NewValidationError("category", fmt.Sprintf("unknown category %q", category), nil)
	}
	if limit.Currency() != e.currency {
		return core.Budget{}, core.NewValidationError("limit",
			fmt.Sprintf("currency %q does not match ledger currency %s", limit.Currency(), e.currency),
			core.ErrIncompatibleCurrency)
	}
	b, err := e.budgets.Set(core.Budget{Period: period, Category: c.Code, Limit: limit})
	if err != nil {
		return core.Budget{}, err
	}
	e.revision++
	e.logger.Debug("budget set", applog.NewFields().WithBudget(b).ToSlice()...)
	return b, nil
}

func (e *Engine) Budget(period core.Period, category string) (core.Budget, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.budgets.Find(period, category)
}

func (e *Engine) Budgets() []core.Budget {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.budgets.All()
}

func (e *Engine) RemoveBudget(period core.Period, category string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.budgets.Remove(period, category) {
		return fmt.Errorf("budget %s %s: %w", period, core.NormalizeCode(category), core.ErrNotFound)
	}
	e.revision++
	return nil
}

// BudgetStatus evaluates the budget of period and category against what has
// been spent so far.
func (e *Engine) BudgetStatus(period core.Period, category string) (core.BudgetStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.budgets.Find(period, category)
	if !ok {
		return core.BudgetStatus{}, fmt.Errorf("budget %s %s: %w", period, core.NormalizeCode(category), core.ErrNotFound)
	}
	spent, err := e.transactions.SpentIn(period, b.Category, e.currency)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return b.Status(spent)
}

// PeriodSummary summarises the transactions dated within [from, to].
func (e *Engine) PeriodSummary(from, to core.Date) (core.PeriodSummary, error) {
	return e.reports.PeriodSummary(from, to)
}

func (e *Engine) CurrentMonthSummary() (core.PeriodSummary, error) {
	return e.reports.CurrentMonthSummary()
}

func (e *Engine) TopExpenses(n int) []core.Transaction {
	return e.reports.TopExpenses(n)
}

func (e *Engine) MonthlyRows(period core.Period) ([]core.ReportRow, error) {
	return e.reports.MonthlyRows(period)
}

// Snapshot returns a consistent copy of the full ledger state.
func (e *Engine) Snapshot() core.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return core.Snapshot{
		Categories:   e.categories.All(),
		Transactions: e.transactions.All(),
		Budgets:      e.budgets.All(),
	}
}

// Load replaces the ledger state with what store holds and clears the undo
// history. On failure the engine keeps its current state, falling back to
// the default categories when it has none.
func (e *Engine) Load(ctx context.Context, store SnapshotStore) error {
	snap, err := store.LoadAll(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		if e.categories.Len() == 0 {
			e.categories.SeedDefaults()
		}
		if !errors.Is(err, core.ErrIO) && !errors.Is(err, core.ErrCorruptState) {
			err = fmt.Errorf("%w: %w", core.ErrIO, err)
		}
		e.logger.Error("load failed", applog.NewFields().WithOperation(applog.OpLoad).WithError(err).ToSlice()...)
		return fmt.Errorf("load ledger: %w", err)
	}

	if err := e.restore(snap); err != nil {
		e.logger.Error("persisted state rejected", applog.NewFields().WithOperation(applog.OpLoad).WithError(err).ToSlice()...)
		return fmt.Errorf("load ledger: %w", err)
	}

	e.logger.Info("ledger loaded",
		applog.FieldOperation, applog.OpLoad,
		"categories", e.categories.Len(),
		"transactions", e.transactions.Len(),
		"budgets", e.budgets.Len())
	return nil
}

// restore validates snap in full before touching any engine state.
func (e *Engine) restore(snap core.Snapshot) error {
	transactions := NewTransactionStore()
	budgets := NewBudgetRegistry()
	categories := NewCategoryRegistry(categoryRefs{transactions, budgets})

	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", core.ErrCorruptState, fmt.Sprintf(format, args...))
	}

	for i, c := range snap.Categories {
		if _, err := categories.Add(c.Code, c.Name); err != nil {
			return corrupt("category #%d: %v", i, err)
		}
	}
	if categories.Len() == 0 {
		categories.SeedDefaults()
	}

	for i, tx := range snap.Transactions {
		if tx.ID == uuid.Nil {
			return corrupt("transaction #%d: missing id", i)
		}
		tx.Category = core.NormalizeCode(tx.Category)
		if err := tx.Validate(); err != nil {
			return corrupt("transaction %s: %v", tx.ID, err)
		}
		if tx.Amount.Currency() != e.currency {
			return corrupt("transaction %s: currency %s, ledger uses %s", tx.ID, tx.Amount.Currency(), e.currency)
		}
		if !categories.Has(tx.Category) {
			return corrupt("transaction %s: unknown category %s", tx.ID, tx.Category)
		}
		if _, err := transactions.Insert(tx); err != nil {
			return corrupt("transaction %s: %v", tx.ID, err)
		}
	}

	for _, b := range snap.Budgets {
		if b.Limit.Currency() != e.currency {
			return corrupt("%s: currency %s, ledger uses %s", b, b.Limit.Currency(), e.currency)
		}
		if !categories.Has(b.Category) {
			return corrupt("%s: unknown category", b)
		}
		if _, err := budgets.Set(b); err != nil {
			return corrupt("%s: %v", b, err)
		}
	}

	e.categories = categories
	e.transactions = transactions
	e.budgets = budgets
	e.undo.Clear()
	e.revision++
	return nil
}

// Flush writes a snapshot to store. The snapshot is taken under the engine
// lock; the write happens outside it. Concurrent flushes are serialised.
func (e *Engine) Flush(ctx context.Context, store SnapshotStore) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	snap := e.Snapshot()
	start := time.Now()
	if err := store.SaveAll(ctx, snap); err != nil {
		if !errors.Is(err, core.ErrIO) {
			err = fmt.Errorf("%w: %w", core.ErrIO, err)
		}
		e.logger.Error("flush failed", applog.NewFields().WithOperation(applog.OpFlush).WithError(err).ToSlice()...)
		return fmt.Errorf("flush ledger: %w", err)
	}
	e.logger.Debug("ledger flushed",
		applog.FieldOperation, applog.OpFlush,
		applog.FieldCount, len(snap.Transactions),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
