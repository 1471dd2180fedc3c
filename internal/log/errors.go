package log

import (
	"errors"

	"ledgerlite/internal/core"
)

// ErrorType classifies err into one of the ErrorType* categories.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrBudgetExceeded):
		return ErrorTypeBudget
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrInvalidDate):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrDuplicateCategory),
		errors.Is(err, core.ErrBudgetAlreadyExists),
		errors.Is(err, core.ErrCategoryInUse):
		return ErrorTypeConflict
	case errors.Is(err, core.ErrIO), errors.Is(err, core.ErrCorruptState):
		return ErrorTypeStorage
	default:
		return ErrorTypeInternal
	}
}
