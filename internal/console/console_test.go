package console

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlite/internal/core"
	"ledgerlite/internal/ledger"
	applog "ledgerlite/internal/log"
	"ledgerlite/internal/services"
	"ledgerlite/internal/storage/memory"
)

type recordingExporter struct {
	rows []core.ReportRow
}

func (r *recordingExporter) Export(_ context.Context, rows []core.ReportRow) error {
	r.rows = append(r.rows, rows...)
	return nil
}

func newTestConsole(t *testing.T, input string, opts ...Option) (*Console, *bytes.Buffer, *memory.Store) {
	t.Helper()
	color.NoColor = true

	engine, err := ledger.New(ledger.WithClock(func() time.Time {
		return time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	store := memory.New()
	svc := services.NewLedgerService(engine, store, nil, applog.Discard().Slog())

	var out bytes.Buffer
	opts = append(opts, WithLogger(applog.Discard().Slog()))
	return New(svc, strings.NewReader(input), &out, opts...), &out, store
}

func run(t *testing.T, c *Console) {
	t.Helper()
	require.NoError(t, c.Run(context.Background()))
}

func TestConsole_AddAndBalance(t *testing.T) {
	c, out, _ := newTestConsole(t, strings.Join([]string{
		"income 50000 salary 2026-02-01 February pay",
		"expense 12000 FOOD",
		"balance",
	}, "\n"))
	run(t, c)

	s := out.String()
	assert.Contains(t, s, "Income 50000.00 RUB SALARY on 2026-02-01")
	assert.Contains(t, s, "Expense 12000.00 RUB FOOD on 2026-02-14")
	assert.Contains(t, s, "Balance: 38000.00 RUB")

	txs := c.svc.Engine().Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "February pay", txs[0].Note)
}

func TestConsole_BudgetFlow(t *testing.T) {
	c, out, _ := newTestConsole(t, strings.Join([]string{
		"budget set 2026-02 FOOD 1000",
		"expense 700 FOOD",
		"expense 300.01 FOOD",
		"budget status 2026-02 FOOD",
	}, "\n"))
	run(t, c)

	s := out.String()
	assert.Contains(t, s, "Budget 2026-02 FOOD set to 1000.00 RUB")
	assert.Contains(t, s, "Error: budget 2026-02 FOOD exceeded")
	assert.Contains(t, s, "remaining 300.00 RUB")
	assert.Contains(t, s, "spent 700.00 RUB (70.0%)")
	assert.Len(t, c.svc.Engine().Transactions(), 1)
}

func TestConsole_UndoAndRemove(t *testing.T) {
	c, out, _ := newTestConsole(t, "expense 10 FOOD\nundo\nundo\nremove not-a-uuid\n")
	run(t, c)

	s := out.String()
	assert.Contains(t, s, "Undone:")
	assert.Contains(t, s, "Nothing to undo")
	assert.Contains(t, s, "malformed transaction id")
	assert.Empty(t, c.svc.Engine().Transactions())
}

func TestConsole_ErrorsDoNotStopTheLoop(t *testing.T) {
	c, out, _ := newTestConsole(t, "frobnicate\nexpense\nexpense -5 FOOD\ncategory rm FOOD\nexpense 5 FOOD\n")
	run(t, c)

	s := out.String()
	assert.Contains(t, s, `unknown command "frobnicate"`)
	assert.Contains(t, s, "usage: expense <amount>")
	assert.Contains(t, s, "Category FOOD removed")
	assert.Contains(t, s, "Error: validation failed")
	assert.Empty(t, c.svc.Engine().Transactions())
}

func TestConsole_ExitStopsReading(t *testing.T) {
	c, _, _ := newTestConsole(t, "exit\nexpense 5 FOOD\n")
	run(t, c)
	assert.Empty(t, c.svc.Engine().Transactions())
}

func TestConsole_CancelledContext(t *testing.T) {
	c, _, _ := newTestConsole(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, c.Run(ctx))
}

func TestConsole_SaveFlushes(t *testing.T) {
	c, out, store := newTestConsole(t, "expense 5 FOOD\nsave\n")
	run(t, c)

	assert.Contains(t, out.String(), "Saved")
	assert.Equal(t, 1, store.Saves())
	snap, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Transactions, 1)
}

type lockedStore struct {
	memory.Store
}

func (*lockedStore) LoadAll(context.Context) (core.Snapshot, error) {
	return core.Snapshot{}, fmt.Errorf("%w: database is locked", core.ErrIO)
}

func TestConsole_SaveAfterFailedLoadNeedsForce(t *testing.T) {
	color.NoColor = true
	engine, err := ledger.New(ledger.WithClock(func() time.Time {
		return time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	store := &lockedStore{}
	svc := services.NewLedgerService(engine, store, nil, applog.Discard().Slog())
	require.ErrorIs(t, svc.Load(context.Background()), core.ErrIO)

	var out bytes.Buffer
	c := New(svc, strings.NewReader("expense 5 FOOD\nsave\n"), &out, WithLogger(applog.Discard().Slog()))
	run(t, c)
	assert.Contains(t, out.String(), "save force")
	assert.NotContains(t, out.String(), "Saved")
	assert.Equal(t, 0, store.Saves())

	out.Reset()
	c.Execute(context.Background(), "save force")
	assert.Contains(t, out.String(), "Saved")
	assert.Equal(t, 1, store.Saves())

	out.Reset()
	c.Execute(context.Background(), "save now")
	assert.Contains(t, out.String(), "usage: save [force]")
}

func TestConsole_ImportAndExport(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("date,type,amount,category,note\n2026-02-01,EXPENSE,100,FOOD,x\n2026-02-02,EXPENSE,bad,FOOD\n"), 0o644))
	reportPath := filepath.Join(dir, "report.csv")
	txPath := filepath.Join(dir, "tx.json")

	sheets := &recordingExporter{}
	c, out, _ := newTestConsole(t, strings.Join([]string{
		"import " + csvPath,
		"export report 2026-02 " + reportPath,
		"export report 2026-02 sheets",
		"export transactions " + txPath,
	}, "\n"), WithSheets(sheets))
	run(t, c)

	s := out.String()
	assert.Contains(t, s, "Imported 1 of 3 rows (1 failed, 1 skipped)")
	assert.Contains(t, s, "line 3")

	report, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, "period,category,total\n2026-02,FOOD,100.00\n", string(report))

	require.Len(t, sheets.rows, 1)
	assert.Equal(t, "FOOD", sheets.rows[0].Category)

	_, err = os.Stat(txPath)
	assert.NoError(t, err)
}

func TestConsole_SheetsNotConfigured(t *testing.T) {
	c, out, _ := newTestConsole(t, "export report 2026-02 sheets\n")
	run(t, c)
	assert.Contains(t, out.String(), "google sheets export is not configured")
}

func TestConsole_ReportsAndListing(t *testing.T) {
	c, out, _ := newTestConsole(t, strings.Join([]string{
		"expense 2000 FOOD 2026-02-03",
		"expense 2000 HOME 2026-02-04",
		"expense 50 FUN 2026-01-10",
		"summary",
		"top 2",
		"list 2026-01",
		"categories",
		"help",
	}, "\n"))
	run(t, c)

	s := out.String()
	assert.Contains(t, s, "Summary 2026-02-01 .. 2026-02-28")
	assert.Contains(t, s, "Transactions: 2")
	assert.Contains(t, s, "FUN")
	assert.Contains(t, s, "Entertainment")
	assert.Contains(t, s, "budget set|rm|status")
}
