package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"ledgerlite/internal/core"
	"ledgerlite/internal/store"
)

// TransactionStore keeps transactions keyed by id in insertion order.
type TransactionStore struct {
	items *store.Ordered[uuid.UUID, core.Transaction]
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{items: store.NewOrdered[uuid.UUID, core.Transaction]()}
}

// Insert stores tx, assigning a fresh id when tx.ID is nil. An id that is
// already present is rejected.
func (s *TransactionStore) Insert(tx core.Transaction) (core.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if !s.items.Insert(tx.ID, tx) {
		return core.Transaction{}, core.NewValidationError("id", fmt.Sprintf("duplicate transaction id %s", tx.ID), nil)
	}
	return tx, nil
}

func (s *TransactionStore) Find(id uuid.UUID) (core.Transaction, bool) {
	return s.items.Get(id)
}

// Delete removes the transaction and reports whether it existed.
func (s *TransactionStore) Delete(id uuid.UUID) (core.Transaction, bool) {
	return s.items.Delete(id)
}

// All returns a copy of every transaction in insertion order.
func (s *TransactionStore) All() []core.Transaction {
	return s.items.Values()
}

func (s *TransactionStore) Len() int { return s.items.Len() }

// FindByPeriodAndCategory returns the expenses booked in period under category.
func (s *TransactionStore) FindByPeriodAndCategory(period core.Period, category string) []core.Transaction {
	category = core.NormalizeCode(category)
	var out []core.Transaction
	s.items.Each(func(_ uuid.UUID, tx core.Transaction) bool {
		if tx.IsExpense() && tx.Category == category && period.Contains(tx.Date) {
			out = append(out, tx)
		}
		return true
	})
	return out
}

// SpentIn sums the expenses of period and category.
func (s *TransactionStore) SpentIn(period core.Period, category, currency string) (core.Money, error) {
	total := core.Zero(currency)
	for _, tx := range s.FindByPeriodAndCategory(period, category) {
		var err error
		if total, err = total.Add(tx.Amount); err != nil {
			return core.Money{}, err
		}
	}
	return total, nil
}

// ReferencesCategory reports whether any transaction uses code.
func (s *TransactionStore) ReferencesCategory(code string) bool {
	found := false
	s.items.Each(func(_ uuid.UUID, tx core.Transaction) bool {
		found = tx.Category == code
		return !found
	})
	return found
}
