package amqp

import (
	"encoding/json"
	"time"

	"ledgerlite/internal/core"
)

// EventType names a ledger change.
type EventType string

const (
	EventTransactionAdded   EventType = "transaction.added"
	EventTransactionRemoved EventType = "transaction.removed"
	EventUndoApplied        EventType = "undo.applied"
	EventSnapshotSaved      EventType = "snapshot.saved"
)

// LedgerEvent is published after a ledger change has been committed.
type LedgerEvent struct {
	Type          EventType `json:"type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Kind          string    `json:"kind,omitempty"`
	Date          string    `json:"date,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Category      string    `json:"category,omitempty"`
	Transactions  int       `json:"transactions,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent describes a change to a single transaction.
func NewTransactionEvent(t EventType, tx core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:          t,
		TransactionID: tx.ID.String(),
		Kind:          string(tx.Kind),
		Date:          tx.Date.String(),
		Amount:        tx.Amount.Amount().StringFixed(core.Scale),
		Currency:      tx.Amount.Currency(),
		Category:      tx.Category,
		Timestamp:     time.Now(),
	}
}

// NewSnapshotSavedEvent reports a successful flush of count transactions.
func NewSnapshotSavedEvent(count int) *LedgerEvent {
	return &LedgerEvent{
		Type:         EventSnapshotSaved,
		Transactions: count,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
