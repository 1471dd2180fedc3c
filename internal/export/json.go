package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"ledgerlite/internal/core"
)

type reportItem struct {
	Period   string `json:"period"`
	Category string `json:"category"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type transactionItem struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Category string `json:"category"`
	Note     string `json:"note,omitempty"`
}

// JSONReportExporter writes rows as an indented JSON array.
type JSONReportExporter struct {
	w io.Writer
}

func NewJSONReportExporter(w io.Writer) *JSONReportExporter {
	return &JSONReportExporter{w: w}
}

func (e *JSONReportExporter) Export(ctx context.Context, rows []core.ReportRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items := make([]reportItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, reportItem{
			Period:   row.Period.String(),
			Category: row.Category,
			Total:    formatAmount(row.Total),
			Currency: row.Total.Currency(),
		})
	}
	return writeJSON(e.w, items)
}

// WriteTransactionsJSON writes txs as an indented JSON array.
func WriteTransactionsJSON(w io.Writer, txs []core.Transaction) error {
	items := make([]transactionItem, 0, len(txs))
	for _, tx := range txs {
		items = append(items, transactionItem{
			ID:       tx.ID.String(),
			Date:     tx.Date.String(),
			Type:     string(tx.Kind),
			Amount:   formatAmount(tx.Amount),
			Currency: tx.Amount.Currency(),
			Category: tx.Category,
			Note:     tx.Note,
		})
	}
	return writeJSON(w, items)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: encode json: %v", core.ErrIO, err)
	}
	return nil
}
