package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"ledgerlite/internal/core"
)

var (
	reportHeader      = []string{"period", "category", "total"}
	transactionHeader = []string{"id", "date", "type", "amount", "currency", "category", "note"}
)

// CSVReportExporter writes `period,category,total` rows.
type CSVReportExporter struct {
	w io.Writer
}

func NewCSVReportExporter(w io.Writer) *CSVReportExporter {
	return &CSVReportExporter{w: w}
}

func (e *CSVReportExporter) Export(ctx context.Context, rows []core.ReportRow) error {
	cw := csv.NewWriter(e.w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("%w: write csv header: %v", core.ErrIO, err)
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		record := []string{row.Period.String(), row.Category, formatAmount(row.Total)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%w: write csv row: %v", core.ErrIO, err)
		}
	}
	return flushCSV(cw)
}

// WriteTransactionsCSV writes one record per transaction with a header row.
func WriteTransactionsCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("%w: write csv header: %v", core.ErrIO, err)
	}
	for _, tx := range txs {
		record := []string{
			tx.ID.String(),
			tx.Date.String(),
			string(tx.Kind),
			formatAmount(tx.Amount),
			tx.Amount.Currency(),
			tx.Category,
			tx.Note,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%w: write csv row: %v", core.ErrIO, err)
		}
	}
	return flushCSV(cw)
}

func flushCSV(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: flush csv: %v", core.ErrIO, err)
	}
	return nil
}

func formatAmount(m core.Money) string {
	return m.Amount().StringFixed(core.Scale)
}
