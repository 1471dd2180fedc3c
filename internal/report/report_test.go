package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlite/internal/core"
)

type staticSource []core.Transaction

func (s staticSource) Transactions() []core.Transaction { return s }

func tx(kind core.Kind, day int, amount, category string) core.Transaction {
	return core.Transaction{
		ID:       uuid.New(),
		Kind:     kind,
		Date:     core.NewDate(2026, time.February, day),
		Amount:   core.MustMoney(amount, "RUB"),
		Category: category,
	}
}

func fixture() []core.Transaction {
	return []core.Transaction{
		tx(core.KindIncome, 1, "50000", "SALARY"),
		tx(core.KindExpense, 3, "1200", "FOOD"),
		tx(core.KindExpense, 5, "300", "TRANSP"),
		tx(core.KindExpense, 10, "800", "FOOD"),
		tx(core.KindExpense, 12, "2000", "HOME"),
		tx(core.KindExpense, 20, "500", "FUN"),
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(fixture(), core.NewDate(2026, time.February, 1), core.NewDate(2026, time.February, 28), "RUB")
	require.NoError(t, err)

	assert.Equal(t, "50000.00 RUB", s.TotalIncome.String())
	assert.Equal(t, "4800.00 RUB", s.TotalExpense.String())
	assert.Equal(t, "45200.00 RUB", s.Balance.String())
	assert.Equal(t, 6, s.TransactionCount)

	require.Len(t, s.TopCategories, 4)
	// FOOD and HOME tie at 2000, broken by code.
	assert.Equal(t, "FOOD", s.TopCategories[0].Category)
	assert.Equal(t, "HOME", s.TopCategories[1].Category)
	assert.Equal(t, "FUN", s.TopCategories[2].Category)
	assert.Equal(t, "TRANSP", s.TopCategories[3].Category)
	assert.Equal(t, "2000.00 RUB", s.TopCategories[0].Amount.String())
}

func TestSummarize_RangeIsInclusive(t *testing.T) {
	s, err := Summarize(fixture(), core.NewDate(2026, time.February, 3), core.NewDate(2026, time.February, 10), "RUB")
	require.NoError(t, err)
	assert.Equal(t, 3, s.TransactionCount)
	assert.Equal(t, "2300.00 RUB", s.TotalExpense.String())
	assert.True(t, s.TotalIncome.IsZero())
}

func TestSummarize_EmptyAndInverted(t *testing.T) {
	s, err := Summarize(nil, core.NewDate(2026, time.January, 1), core.NewDate(2026, time.January, 31), "RUB")
	require.NoError(t, err)
	assert.True(t, s.Balance.IsZero())
	assert.Equal(t, "RUB", s.Balance.Currency())
	assert.Empty(t, s.TopCategories)

	_, err = Summarize(nil, core.NewDate(2026, time.February, 2), core.NewDate(2026, time.February, 1), "RUB")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTotals_BalanceIsIncomeMinusExpense(t *testing.T) {
	income, expense, balance, err := Totals(fixture(), "RUB")
	require.NoError(t, err)
	diff, err := income.Sub(expense)
	require.NoError(t, err)
	assert.True(t, diff.Equal(balance))
}

func TestTopExpenses(t *testing.T) {
	txs := fixture()
	top := TopExpenses(txs, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "2000.00 RUB", top[0].Amount.String())
	assert.Equal(t, "1200.00 RUB", top[1].Amount.String())
	assert.Equal(t, "800.00 RUB", top[2].Amount.String())

	assert.Empty(t, TopExpenses(txs, 0))
	assert.Empty(t, TopExpenses(txs, -1))
	assert.Len(t, TopExpenses(txs, 100), 5)
}

func TestTopExpenses_TiesOrderedByID(t *testing.T) {
	a := tx(core.KindExpense, 1, "100", "FOOD")
	b := tx(core.KindExpense, 2, "100", "FOOD")
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

	top := TopExpenses([]core.Transaction{a, b}, 2)
	assert.Equal(t, b.ID, top[0].ID)
	assert.Equal(t, a.ID, top[1].ID)
}

func TestMonthlyRows(t *testing.T) {
	txs := append(fixture(), core.Transaction{
		ID:       uuid.New(),
		Kind:     core.KindExpense,
		Date:     core.NewDate(2026, time.March, 1),
		Amount:   core.MustMoney("99", "RUB"),
		Category: "FOOD",
	})
	rows, err := MonthlyRows(txs, core.NewPeriod(2026, time.February), "RUB")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "FOOD", rows[0].Category)
	assert.Equal(t, "2000.00 RUB", rows[0].Total.String())
	assert.Equal(t, "2026-02", rows[0].Period.String())

	_, err = MonthlyRows(txs, core.NewPeriod(2026, 13), "RUB")
	assert.Error(t, err)
}

func TestAggregator_CurrentMonthUsesClock(t *testing.T) {
	now := func() time.Time { return time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC) }
	a := NewAggregator(staticSource(fixture()), "RUB", now)

	s, err := a.CurrentMonthSummary()
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2026, time.February, 1), s.From)
	assert.Equal(t, core.NewDate(2026, time.February, 28), s.To)
	assert.Equal(t, 6, s.TransactionCount)

	assert.Len(t, a.TopExpenses(2), 2)
}
