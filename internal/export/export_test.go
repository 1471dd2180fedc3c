package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerlite/internal/core"
)

func sampleRows() []core.ReportRow {
	feb := core.NewPeriod(2026, time.February)
	return []core.ReportRow{
		{Period: feb, Category: "HOME", Total: core.MustMoney("12000", "RUB")},
		{Period: feb, Category: "FOOD", Total: core.MustMoney("150.5", "RUB")},
	}
}

func sampleTransactions() []core.Transaction {
	return []core.Transaction{{
		ID:       uuid.MustParse("8f1c2a3e-0000-4000-8000-000000000001"),
		Kind:     core.KindExpense,
		Date:     core.NewDate(2026, time.February, 3),
		Amount:   core.MustMoney("1.5", "RUB"),
		Category: "FOOD",
		Note:     "coffee, large",
	}}
}

func TestCSVReportExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVReportExporter(&buf).Export(context.Background(), sampleRows()))
	assert.Equal(t, "period,category,total\n2026-02,HOME,12000.00\n2026-02,FOOD,150.50\n", buf.String())
}

func TestCSVReportExporter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVReportExporter(&buf).Export(context.Background(), nil))
	assert.Equal(t, "period,category,total\n", buf.String())
}

func TestJSONReportExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONReportExporter(&buf).Export(context.Background(), sampleRows()))

	assert.Contains(t, buf.String(), "\n  {\n", "output is indented")
	var items []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, map[string]string{
		"period":   "2026-02",
		"category": "HOME",
		"total":    "12000.00",
		"currency": "RUB",
	}, items[0])
}

func TestJSONReportExporter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONReportExporter(&buf).Export(context.Background(), nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestTransactionsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, sampleTransactions()))
	assert.Equal(t,
		"id,date,type,amount,currency,category,note\n"+
			"8f1c2a3e-0000-4000-8000-000000000001,2026-02-03,EXPENSE,1.50,RUB,FOOD,\"coffee, large\"\n",
		buf.String())
}

func TestTransactionsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsJSON(&buf, sampleTransactions()))
	assert.JSONEq(t, `[{
		"id": "8f1c2a3e-0000-4000-8000-000000000001",
		"date": "2026-02-03",
		"type": "EXPENSE",
		"amount": "1.50",
		"currency": "RUB",
		"category": "FOOD",
		"note": "coffee, large"
	}]`, buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromPath("out/report.json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = NewReportExporter("xml", &bytes.Buffer{})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestWriteReportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "feb.csv")
	require.NoError(t, WriteReportFile(context.Background(), path, sampleRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2026-02,FOOD,150.50")

	err = WriteReportFile(context.Background(), filepath.Join(t.TempDir(), "feb.txt"), sampleRows())
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestWriteReportFile_CancelledKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feb.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WriteReportFile(ctx, path, sampleRows())
	assert.True(t, errors.Is(err, context.Canceled))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestWriteTransactionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.json")
	require.NoError(t, WriteTransactionsFile(path, sampleTransactions()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"category": "FOOD"`)
}
