package ledger

import (
	"fmt"

	"ledgerlite/internal/core"
	"ledgerlite/internal/store"
)

// CategoryUsage reports whether a category code is still referenced elsewhere.
type CategoryUsage interface {
	ReferencesCategory(code string) bool
}

// CategoryRegistry holds categories keyed by normalised code, in insertion order.
type CategoryRegistry struct {
	items *store.Ordered[string, core.Category]
	usage CategoryUsage
}

// NewCategoryRegistry creates an empty registry. usage may be nil, in which
// case Remove never reports ErrCategoryInUse.
func NewCategoryRegistry(usage CategoryUsage) *CategoryRegistry {
	return &CategoryRegistry{
		items: store.NewOrdered[string, core.Category](),
		usage: usage,
	}
}

// Add registers a new category.
func (r *CategoryRegistry) Add(code, name string) (core.Category, error) {
	c, err := core.NewCategory(code, name)
	if err != nil {
		return core.Category{}, err
	}
	if !r.items.Insert(c.Code, c) {
		return core.Category{}, fmt.Errorf("category %s: %w", c.Code, core.ErrDuplicateCategory)
	}
	return c, nil
}

// Find looks a category up by code, case-insensitively.
func (r *CategoryRegistry) Find(code string) (core.Category, bool) {
	return r.items.Get(core.NormalizeCode(code))
}

// Has reports whether code is registered.
func (r *CategoryRegistry) Has(code string) bool {
	return r.items.Has(core.NormalizeCode(code))
}

// All returns every category in insertion order.
func (r *CategoryRegistry) All() []core.Category {
	return r.items.Values()
}

// Remove deletes an unreferenced category.
func (r *CategoryRegistry) Remove(code string) error {
	code = core.NormalizeCode(code)
	if !r.items.Has(code) {
		return fmt.Errorf("category %s: %w", code, core.ErrNotFound)
	}
	if r.usage != nil && r.usage.ReferencesCategory(code) {
		return fmt.Errorf("category %s: %w", code, core.ErrCategoryInUse)
	}
	r.items.Delete(code)
	return nil
}

// SeedDefaults adds the built-in categories that are not yet registered.
func (r *CategoryRegistry) SeedDefaults() {
	for _, c := range core.DefaultCategories() {
		r.items.Insert(c.Code, c)
	}
}

func (r *CategoryRegistry) Len() int { return r.items.Len() }
