package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateCategory    = errors.New("category already exists")
	ErrCategoryInUse        = errors.New("category is in use")
	ErrBudgetAlreadyExists  = errors.New("budget already exists for period and category")
	ErrBudgetExceeded       = errors.New("budget exceeded")
	ErrNotFound             = errors.New("not found")
	ErrIncompatibleCurrency = errors.New("incompatible currency")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidCurrency      = errors.New("invalid currency")
	ErrInvalidDate          = errors.New("invalid date")
	ErrIO                   = errors.New("i/o failure")
	ErrCorruptState         = errors.New("corrupt persisted state")
	// ErrStoreNotLoaded refuses a save that would replace a stored ledger
	// which could not be read.
	ErrStoreNotLoaded       = errors.New("stored ledger was not loaded")
)

// ValidationError reports a caller-correctable problem with one input field.
// It matches ErrValidation and, when set, the underlying cause.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string, cause error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Err: cause}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// BudgetExceededError is returned when recording an expense would push the
// month's spending in a category past its budget limit.
type BudgetExceededError struct {
	Period    Period
	Category  string
	Limit     Money
	Spent     Money
	Attempted Money
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded for %s in %s: limit %s, already spent %s, attempted %s",
		e.Category, e.Period, e.Limit, e.Spent, e.Attempted)
}

func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}
