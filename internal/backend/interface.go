package backend

import (
	"context"

	"ledgerlite/internal/export"
	"ledgerlite/internal/ledger"
	"ledgerlite/internal/services"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult bundles what the binary needs to run the ledger: where
// snapshots live and the optional outbound collaborators.
type BackendResult struct {
	Store ledger.SnapshotStore
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher services.EventPublisher
	// Reports is nil when Google Sheets export is not configured.
	Reports export.ReportExporter
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// JSON file specific
	JSONDataPath string

	// Optional ledger events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Optional Google Sheets report export
	GoogleSpreadsheetID      string
	GoogleReportSheetName    string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of snapshot store
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	JSONBackend   BackendType = "json"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, JSONBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
