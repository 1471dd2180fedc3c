// Package importer loads transactions from CSV files into the ledger.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"ledgerlite/internal/core"
	applog "ledgerlite/internal/log"
)

// Ledger is the subset of the ledger service the importer drives.
type Ledger interface {
	AddIncome(ctx context.Context, date core.Date, amount core.Money, category, note string) (core.Transaction, error)
	AddExpense(ctx context.Context, date core.Date, amount core.Money, category, note string) (core.Transaction, error)
}

// Column order of an import record. The note column is optional.
const (
	colDate = iota
	colType
	colAmount
	colCategory
	colNote
)

const minFields = colCategory + 1

// RowError describes a record that could not be imported.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result summarises an import run.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Errors    []RowError
}

// CSVImporter reads `date,type,amount,category,note` records.
type CSVImporter struct {
	ledger   Ledger
	currency string
	logger   *slog.Logger
}

func NewCSVImporter(ledger Ledger, currency string, logger *slog.Logger) *CSVImporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVImporter{
		ledger:   ledger,
		currency: currency,
		logger:   logger.With(applog.FieldComponent, applog.ComponentImporter),
	}
}

// ImportFile opens path and imports it.
func (im *CSVImporter) ImportFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open import file: %v", core.ErrIO, err)
	}
	defer f.Close()

	res, err := im.Import(ctx, f)
	im.logger.InfoContext(ctx, "Import finished",
		applog.FieldPath, path,
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped)
	return res, err
}

// Import processes every record of r. A malformed or rejected record is
// counted as failed and the run continues; only a read failure or a
// cancelled context stops it, returning the partial result.
func (im *CSVImporter) Import(ctx context.Context, r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var res Result
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			res.Total++
			res.fail(parseErr.Line, err)
			first = false
			continue
		}
		if err != nil {
			return res, fmt.Errorf("%w: read import record: %v", core.ErrIO, err)
		}

		line, _ := reader.FieldPos(0)
		res.Total++

		if isBlank(record) {
			res.Skipped++
			continue
		}
		if first {
			first = false
			if isHeader(record) {
				res.Skipped++
				continue
			}
		}

		if err := im.importRecord(ctx, record); err != nil {
			res.fail(line, err)
			im.logger.DebugContext(ctx, "Import record rejected",
				"line", line,
				applog.FieldError, err.Error(),
				applog.FieldErrorType, applog.ErrorType(err))
			continue
		}
		res.Succeeded++
	}
}

func (im *CSVImporter) importRecord(ctx context.Context, record []string) error {
	if len(record) < minFields {
		return core.NewValidationError("", fmt.Sprintf("expected at least %d fields, got %d", minFields, len(record)), nil)
	}

	date, err := core.ParseDate(record[colDate])
	if err != nil {
		return err
	}
	kind, err := core.ParseKind(record[colType])
	if err != nil {
		return err
	}
	amount, err := core.ParseMoney(record[colAmount], im.currency)
	if err != nil {
		return err
	}
	category := record[colCategory]
	note := ""
	if len(record) > colNote {
		note = strings.TrimSpace(record[colNote])
	}

	switch kind {
	case core.KindIncome:
		_, err = im.ledger.AddIncome(ctx, date, amount, category, note)
	default:
		_, err = im.ledger.AddExpense(ctx, date, amount, category, note)
	}
	return err
}

func (r *Result) fail(line int, err error) {
	r.Failed++
	r.Errors = append(r.Errors, RowError{Line: line, Err: err})
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func isHeader(record []string) bool {
	return len(record) > colType &&
		strings.EqualFold(strings.TrimSpace(record[colDate]), "date") &&
		strings.EqualFold(strings.TrimSpace(record[colType]), "type")
}
