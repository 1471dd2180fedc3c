package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlite/internal/core"
	"ledgerlite/internal/ledger"
	applog "ledgerlite/internal/log"
)

// engineLedger adapts the engine to the importer's context-aware interface.
type engineLedger struct{ e *ledger.Engine }

func (l engineLedger) AddIncome(_ context.Context, d core.Date, m core.Money, c, n string) (core.Transaction, error) {
	return l.e.AddIncome(d, m, c, n)
}

func (l engineLedger) AddExpense(_ context.Context, d core.Date, m core.Money, c, n string) (core.Transaction, error) {
	return l.e.AddExpense(d, m, c, n)
}

func newImporter(t *testing.T) (*CSVImporter, *ledger.Engine) {
	t.Helper()
	e, err := ledger.New(ledger.WithClock(func() time.Time {
		return time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return NewCSVImporter(engineLedger{e}, e.Currency(), applog.Discard().Slog()), e
}

func TestImport_HappyPath(t *testing.T) {
	im, e := newImporter(t)
	input := `date,type,amount,category,note
2026-02-01,INCOME,50000,SALARY,February salary
2026-02-03,expense,"1,50",FOOD,"coffee, large"
2026-02-04,EXPENSE,12000,HOME
`
	res, err := im.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 3, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 1, res.Skipped)

	txs := e.Transactions()
	require.Len(t, txs, 3)
	assert.Equal(t, "coffee, large", txs[1].Note)
	assert.Equal(t, "1.50", txs[1].Amount.Amount().StringFixed(2))

	balance, err := e.Balance()
	require.NoError(t, err)
	assert.Equal(t, "37998.50", balance.Amount().StringFixed(2))
}

func TestImport_BadRowsDoNotAbort(t *testing.T) {
	im, e := newImporter(t)
	input := strings.Join([]string{
		"2026-02-01,INCOME,100,SALARY",
		"2026-02-01,REFUND,100,SALARY",   // unknown type
		"not-a-date,EXPENSE,10,FOOD",     // bad date
		"2026-02-01,EXPENSE,abc,FOOD",    // bad amount
		"2026-02-01,EXPENSE,10,NOPE",     // unknown category
		"2026-02-01,EXPENSE",             // too few fields
		"2030-01-01,EXPENSE,10,FOOD",     // future date
		"",
		"2026-02-02,EXPENSE,10,FOOD,ok",
	}, "\n")

	res, err := im.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 6, res.Failed)
	require.Len(t, res.Errors, 6)
	assert.Equal(t, 2, res.Errors[0].Line)
	assert.ErrorIs(t, res.Errors[1], core.ErrInvalidDate)
	assert.ErrorIs(t, res.Errors[2], core.ErrInvalidAmount)
	assert.ErrorIs(t, res.Errors[3], core.ErrValidation)
	assert.Len(t, e.Transactions(), 2)
}

func TestImport_BudgetRejectionIsARowFailure(t *testing.T) {
	im, e := newImporter(t)
	_, err := e.SetBudget(core.NewPeriod(2026, time.February), "FOOD", core.MustMoney("100", "RUB"))
	require.NoError(t, err)

	input := "2026-02-01,EXPENSE,80,FOOD\n2026-02-02,EXPENSE,30,FOOD\n2026-02-03,EXPENSE,20,FOOD\n"
	res, err := im.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.ErrorIs(t, res.Errors[0], core.ErrBudgetExceeded)
	assert.Equal(t, 2, res.Errors[0].Line)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("device gone") }

func TestImport_ReaderFailureIsIO(t *testing.T) {
	im, _ := newImporter(t)
	_, err := im.Import(context.Background(), failingReader{})
	assert.ErrorIs(t, err, core.ErrIO)
}

func TestImport_CancelledContext(t *testing.T) {
	im, e := newImporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := im.Import(ctx, strings.NewReader("2026-02-01,INCOME,100,SALARY\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.Transactions())
}

func TestImportFile(t *testing.T) {
	im, e := newImporter(t)
	path := filepath.Join(t.TempDir(), "tx.csv")
	require.NoError(t, os.WriteFile(path, []byte("2026-02-01,INCOME,100,SALARY\n"), 0o644))

	res, err := im.ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Len(t, e.Transactions(), 1)

	_, err = im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, core.ErrIO)
}
