// Package report derives summaries and rankings from a set of transactions.
// Nothing here is cached: every call recomputes from the input it is given.
package report

import (
	"sort"
	"time"

	"ledgerlite/internal/core"
)

// Source provides a point-in-time copy of the transactions to aggregate.
type Source interface {
	Transactions() []core.Transaction
}

// Aggregator answers report queries against a Source.
type Aggregator struct {
	source   Source
	currency string
	now      func() time.Time
}

// NewAggregator creates an aggregator. now defaults to time.Now.
func NewAggregator(source Source, currency string, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{source: source, currency: currency, now: now}
}

// PeriodSummary summarises the transactions dated within [from, to].
func (a *Aggregator) PeriodSummary(from, to core.Date) (core.PeriodSummary, error) {
	return Summarize(a.source.Transactions(), from, to, a.currency)
}

// CurrentMonthSummary summarises the calendar month containing today.
func (a *Aggregator) CurrentMonthSummary() (core.PeriodSummary, error) {
	p := core.DateOf(a.now()).Period()
	return a.PeriodSummary(p.FirstDay(), p.LastDay())
}

// TopExpenses returns the n largest expenses.
func (a *Aggregator) TopExpenses(n int) []core.Transaction {
	return TopExpenses(a.source.Transactions(), n)
}

// MonthlyRows returns the per-category expense totals of period.
func (a *Aggregator) MonthlyRows(period core.Period) ([]core.ReportRow, error) {
	return MonthlyRows(a.source.Transactions(), period, a.currency)
}

// Totals sums income and expense over txs. balance = income - expense.
func Totals(txs []core.Transaction, currency string) (income, expense, balance core.Money, err error) {
	income, expense = core.Zero(currency), core.Zero(currency)
	for _, tx := range txs {
		switch tx.Kind {
		case core.KindIncome:
			income, err = income.Add(tx.Amount)
		case core.KindExpense:
			expense, err = expense.Add(tx.Amount)
		}
		if err != nil {
			return core.Money{}, core.Money{}, core.Money{}, err
		}
	}
	balance, err = income.Sub(expense)
	return income, expense, balance, err
}

// Summarize builds the summary of the transactions dated within [from, to].
func Summarize(txs []core.Transaction, from, to core.Date, currency string) (core.PeriodSummary, error) {
	if to.IsBefore(from) {
		return core.PeriodSummary{}, core.NewValidationError("to", "end of range is before its start", core.ErrInvalidDate)
	}

	var inRange []core.Transaction
	for _, tx := range txs {
		if !tx.Date.IsBefore(from) && !tx.Date.IsAfter(to) {
			inRange = append(inRange, tx)
		}
	}

	income, expense, balance, err := Totals(inRange, currency)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	top, err := expensesByCategory(inRange, currency)
	if err != nil {
		return core.PeriodSummary{}, err
	}

	return core.PeriodSummary{
		From:             from,
		To:               to,
		TotalIncome:      income,
		TotalExpense:     expense,
		Balance:          balance,
		TransactionCount: len(inRange),
		TopCategories:    top,
	}, nil
}

// TopExpenses returns at most n expenses, largest first. Equal amounts are
// ordered by id so the result is stable.
func TopExpenses(txs []core.Transaction, n int) []core.Transaction {
	if n <= 0 {
		return []core.Transaction{}
	}
	expenses := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.IsExpense() {
			expenses = append(expenses, tx)
		}
	}
	sort.Slice(expenses, func(i, j int) bool {
		if c := expenses[i].Amount.Amount().Cmp(expenses[j].Amount.Amount()); c != 0 {
			return c > 0
		}
		return expenses[i].ID.String() < expenses[j].ID.String()
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}
	return expenses
}

// MonthlyRows returns one row per category with expenses in period, ordered
// like PeriodSummary.TopCategories.
func MonthlyRows(txs []core.Transaction, period core.Period, currency string) ([]core.ReportRow, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	var inPeriod []core.Transaction
	for _, tx := range txs {
		if period.Contains(tx.Date) {
			inPeriod = append(inPeriod, tx)
		}
	}
	totals, err := expensesByCategory(inPeriod, currency)
	if err != nil {
		return nil, err
	}
	rows := make([]core.ReportRow, 0, len(totals))
	for _, ca := range totals {
		rows = append(rows, core.ReportRow{Period: period, Category: ca.Category, Total: ca.Amount})
	}
	return rows, nil
}

func expensesByCategory(txs []core.Transaction, currency string) ([]core.CategoryAmount, error) {
	sums := make(map[string]core.Money)
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		current, ok := sums[tx.Category]
		if !ok {
			current = core.Zero(currency)
		}
		next, err := current.Add(tx.Amount)
		if err != nil {
			return nil, err
		}
		sums[tx.Category] = next
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for code, amount := range sums {
		out = append(out, core.CategoryAmount{Category: code, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Amount().Cmp(out[j].Amount.Amount()); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}
