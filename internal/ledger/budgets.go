package ledger

import (
	"fmt"

	"ledgerlite/internal/core"
	"ledgerlite/internal/store"
)

// BudgetRegistry holds at most one budget per (period, category).
type BudgetRegistry struct {
	items *store.Ordered[core.BudgetKey, core.Budget]
}

func NewBudgetRegistry() *BudgetRegistry {
	return &BudgetRegistry{items: store.NewOrdered[core.BudgetKey, core.Budget]()}
}

// Set registers b. An existing budget for the same key is never overwritten.
func (r *BudgetRegistry) Set(b core.Budget) (core.Budget, error) {
	b.Category = core.NormalizeCode(b.Category)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if !r.items.Insert(b.Key(), b) {
		return core.Budget{}, fmt.Errorf("%s %s: %w", b.Period, b.Category, core.ErrBudgetAlreadyExists)
	}
	return b, nil
}

func (r *BudgetRegistry) Find(period core.Period, category string) (core.Budget, bool) {
	return r.items.Get(core.BudgetKey{Period: period, Category: core.NormalizeCode(category)})
}

// IsExceeded reports spent > limit. Without a budget nothing is ever exceeded.
func (r *BudgetRegistry) IsExceeded(period core.Period, category string, spent core.Money) (bool, error) {
	b, ok := r.Find(period, category)
	if !ok {
		return false, nil
	}
	return b.IsExceeded(spent)
}

// Remaining returns limit - spent for the budget of period and category.
func (r *BudgetRegistry) Remaining(period core.Period, category string, spent core.Money) (core.Money, error) {
	b, ok := r.Find(period, category)
	if !ok {
		return core.Money{}, fmt.Errorf("budget %s %s: %w", period, core.NormalizeCode(category), core.ErrNotFound)
	}
	return b.Remaining(spent)
}

func (r *BudgetRegistry) Remove(period core.Period, category string) bool {
	_, ok := r.items.Delete(core.BudgetKey{Period: period, Category: core.NormalizeCode(category)})
	return ok
}

func (r *BudgetRegistry) All() []core.Budget {
	return r.items.Values()
}

// ReferencesCategory reports whether any budget is set for code.
func (r *BudgetRegistry) ReferencesCategory(code string) bool {
	found := false
	r.items.Each(func(k core.BudgetKey, _ core.Budget) bool {
		found = k.Category == code
		return !found
	})
	return found
}

func (r *BudgetRegistry) Len() int { return r.items.Len() }
