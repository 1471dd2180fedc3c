// Package export writes monthly report rows and transaction listings to
// files or arbitrary writers.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ledgerlite/internal/core"
)

// ReportExporter delivers monthly report rows to a destination.
type ReportExporter interface {
	Export(ctx context.Context, rows []core.ReportRow) error
}

// Format selects the encoding of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", core.NewValidationError("format", fmt.Sprintf("unknown export format %q", s), nil)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// NewReportExporter returns the exporter for format writing to w.
func NewReportExporter(format Format, w io.Writer) (ReportExporter, error) {
	switch format {
	case FormatCSV:
		return NewCSVReportExporter(w), nil
	case FormatJSON:
		return NewJSONReportExporter(w), nil
	default:
		return nil, core.NewValidationError("format", fmt.Sprintf("unknown export format %q", format), nil)
	}
}

// WriteReportFile exports rows to path, choosing the format from its
// extension. The file is replaced only once the export succeeded.
func WriteReportFile(ctx context.Context, path string, rows []core.ReportRow) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		exp, err := NewReportExporter(format, w)
		if err != nil {
			return err
		}
		return exp.Export(ctx, rows)
	})
}

// WriteTransactionsFile exports txs to path, choosing the format from its
// extension.
func WriteTransactionsFile(path string, txs []core.Transaction) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		if format == FormatJSON {
			return WriteTransactionsJSON(w, txs)
		}
		return WriteTransactionsCSV(w, txs)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", core.ErrIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", core.ErrIO, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", core.ErrIO, path, err)
	}
	return nil
}
