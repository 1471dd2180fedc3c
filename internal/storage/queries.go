package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type CategoryRow struct {
	Seq  int64
	Code string
	Name string
}

type TransactionRow struct {
	Seq      int64
	ID       string
	Kind     string
	Date     string
	Amount   string
	Currency string
	Category string
	Note     string
}

type BudgetRow struct {
	Seq         int64
	Period      string
	Category    string
	LimitAmount string
	Currency    string
}

const listCategories = `SELECT seq, code, name FROM categories ORDER BY seq`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var i CategoryRow
		if err := rows.Scan(&i.Seq, &i.Code, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listTransactions = `SELECT seq, id, kind, date, amount, currency, category, note FROM transactions ORDER BY seq`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.Seq, &i.ID, &i.Kind, &i.Date, &i.Amount, &i.Currency, &i.Category, &i.Note); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listBudgets = `SELECT seq, period, category, limit_amount, currency FROM budgets ORDER BY seq`

func (q *Queries) ListBudgets(ctx context.Context) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		var i BudgetRow
		if err := rows.Scan(&i.Seq, &i.Period, &i.Category, &i.LimitAmount, &i.Currency); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAllCategories = `DELETE FROM categories`

func (q *Queries) DeleteAllCategories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllCategories)
	return err
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}

const deleteAllBudgets = `DELETE FROM budgets`

func (q *Queries) DeleteAllBudgets(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllBudgets)
	return err
}

const insertCategory = `INSERT INTO categories (code, name) VALUES (?, ?)`

type InsertCategoryParams struct {
	Code string
	Name string
}

func (q *Queries) InsertCategory(ctx context.Context, arg InsertCategoryParams) error {
	_, err := q.db.ExecContext(ctx, insertCategory, arg.Code, arg.Name)
	return err
}

const insertTransaction = `INSERT INTO transactions (id, kind, date, amount, currency, category, note)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type InsertTransactionParams struct {
	ID       string
	Kind     string
	Date     string
	Amount   string
	Currency string
	Category string
	Note     string
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID,
		arg.Kind,
		arg.Date,
		arg.Amount,
		arg.Currency,
		arg.Category,
		arg.Note,
	)
	return err
}

const insertBudget = `INSERT INTO budgets (period, category, limit_amount, currency) VALUES (?, ?, ?, ?)`

type InsertBudgetParams struct {
	Period      string
	Category    string
	LimitAmount string
	Currency    string
}

func (q *Queries) InsertBudget(ctx context.Context, arg InsertBudgetParams) error {
	_, err := q.db.ExecContext(ctx, insertBudget, arg.Period, arg.Category, arg.LimitAmount, arg.Currency)
	return err
}

const upsertSnapshotMeta = `INSERT INTO snapshot_meta (id, saved_at, tx_count) VALUES (1, ?, ?)
ON CONFLICT (id) DO UPDATE SET saved_at = excluded.saved_at, tx_count = excluded.tx_count`

func (q *Queries) UpsertSnapshotMeta(ctx context.Context, savedAt time.Time, txCount int64) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshotMeta, savedAt, txCount)
	return err
}

const getSnapshotMeta = `SELECT saved_at, tx_count FROM snapshot_meta WHERE id = 1`

type SnapshotMeta struct {
	SavedAt time.Time
	TxCount int64
}

func (q *Queries) GetSnapshotMeta(ctx context.Context) (SnapshotMeta, error) {
	row := q.db.QueryRowContext(ctx, getSnapshotMeta)
	var i SnapshotMeta
	err := row.Scan(&i.SavedAt, &i.TxCount)
	return i, err
}
