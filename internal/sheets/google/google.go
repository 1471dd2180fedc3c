// Package google exports monthly ledger reports to a Google Sheets
// spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerlite/internal/core"
	applog "ledgerlite/internal/log"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name without year (e.g. "Report"); rows are
	// appended to "<year> <SheetName>".
	SheetName string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *slog.Logger
}

// New creates a Sheets report exporter authenticated with a service account.
// Extra client options are appended last; when any are given the service
// account lookup is skipped and the options fully describe the connection.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetBase := strings.TrimSpace(cfg.SheetName)
	if sheetBase == "" {
		sheetBase = "Report"
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(applog.FieldComponent, applog.ComponentSheets)

	if len(opts) == 0 {
		httpClient, err := serviceAccountClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{goption.WithHTTPClient(httpClient)}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		logger:        logger,
	}, nil
}

// serviceAccountClient builds an authenticated client on top of the pooled
// transport.
func serviceAccountClient(ctx context.Context, cfg Config, logger *slog.Logger) (*http.Client, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.DebugContext(ctx, "Reading service account credentials", applog.FieldPath, cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	// Token requests go through the pooled client too.
	base := newHTTPClientWithPooling()
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, base)

	creds, err := goauth.CredentialsFromJSON(tokenCtx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: creds.TokenSource,
			Base:   base.Transport,
		},
		Timeout: base.Timeout,
	}, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling, timeouts and keep-alive.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Export appends one `period, category, total` line per row. Rows are
// grouped by year and each group goes to its own year-prefixed tab.
func (c *Client) Export(ctx context.Context, rows []core.ReportRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return nil
	}

	byYear := map[int][][]any{}
	for _, row := range rows {
		year := row.Period.Year
		byYear[year] = append(byYear[year], []any{
			row.Period.String(),
			row.Category,
			row.Total.Amount().StringFixed(core.Scale),
		})
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, year := range years {
		sheet := yearPrefixedName(c.sheetBase, year)
		rng := fmt.Sprintf("%s!A:C", sheet)
		vr := &gsheet.ValueRange{Values: byYear[year]}

		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%w: append to %s: %v", core.ErrIO, sheet, err)
		}

		updated := ""
		if resp.Updates != nil {
			updated = resp.Updates.UpdatedRange
		}
		c.logger.InfoContext(ctx, "Report appended to sheet",
			applog.FieldOperation, applog.OpExport,
			"sheet", sheet,
			"range", updated,
			applog.FieldCount, len(byYear[year]))
	}
	return nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
