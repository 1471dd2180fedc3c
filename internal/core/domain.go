package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

const maxNoteLength = 200

type (
	// Kind tags a transaction as income or expense.
	Kind string

	Category struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}

	// Transaction is an immutable income or expense record. Behaviour that
	// depends on the variant switches on Kind.
	Transaction struct {
		ID       uuid.UUID `json:"id"`
		Kind     Kind      `json:"type"`
		Date     Date      `json:"date"`
		Amount   Money     `json:"amount"`
		Category string    `json:"category"`
		Note     string    `json:"note,omitempty"`
	}

	// BudgetKey is the natural key of a Budget.
	BudgetKey struct {
		Period   Period
		Category string
	}

	// Budget caps expense spending for one category in one period.
	Budget struct {
		Period   Period `json:"period"`
		Category string `json:"category"`
		Limit    Money  `json:"limit"`
	}

	// BudgetStatus is a budget evaluated against what has been spent so far.
	BudgetStatus struct {
		Budget       Budget
		Spent        Money
		Remaining    Money
		Exceeded     bool
		UsagePercent decimal.Decimal
	}

	// Snapshot is a full, consistent copy of ledger state, in insertion order.
	Snapshot struct {
		Categories   []Category    `json:"categories"`
		Transactions []Transaction `json:"transactions"`
		Budgets      []Budget      `json:"budgets"`
	}
)

// DefaultCategories are seeded when no persisted categories exist.
func DefaultCategories() []Category {
	return []Category{
		{Code: "FOOD", Name: "Food"},
		{Code: "TRANSP", Name: "Transport"},
		{Code: "HOME", Name: "Home"},
		{Code: "HEALTH", Name: "Health"},
		{Code: "FUN", Name: "Entertainment"},
		{Code: "SALARY", Name: "Salary"},
		{Code: "OTHER", Name: "Other"},
	}
}

// NormalizeCode trims and upper-cases a category code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewCategory normalises and validates a category.
func NewCategory(code, name string) (Category, error) {
	c := Category{Code: NormalizeCode(code), Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (c Category) Validate() error {
	if c.Code == "" {
		return NewValidationError("code", "category code cannot be blank", nil)
	}
	if c.Code != NormalizeCode(c.Code) {
		return NewValidationError("code", "category code must be upper-case without surrounding spaces", nil)
	}
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "category name cannot be blank", nil)
	}
	return nil
}

// ParseKind accepts INCOME or EXPENSE in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", NewValidationError("type", fmt.Sprintf("unknown transaction type %q", s), nil)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Label is the human-readable name of the kind.
func (k Kind) Label() string {
	switch k {
	case KindIncome:
		return "Income"
	case KindExpense:
		return "Expense"
	default:
		return "Unknown"
	}
}

func (t Transaction) IsIncome() bool { return t.Kind == KindIncome }

func (t Transaction) IsExpense() bool { return t.Kind == KindExpense }

// Signed returns the amount with the sign it contributes to the balance.
func (t Transaction) Signed() Money {
	switch t.Kind {
	case KindExpense:
		return t.Amount.Mul(decimal.NewFromInt(-1))
	default:
		return t.Amount
	}
}

// Validate checks the structural rules of a transaction. Whether the date is
// in the future and whether the category exists depend on ledger state and
// are checked by the engine.
func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return NewValidationError("type", fmt.Sprintf("unknown transaction type %q", t.Kind), nil)
	}
	if err := t.Date.Validate(); err != nil {
		return NewValidationError("date", "date is required", err)
	}
	if !t.Amount.IsPositive() {
		return NewValidationError("amount", "amount must be positive", ErrInvalidAmount)
	}
	if t.Category == "" {
		return NewValidationError("category", "category is required", nil)
	}
	if utf8.RuneCountInString(t.Note) > maxNoteLength {
		return NewValidationError("note", fmt.Sprintf("note too long (max %d characters)", maxNoteLength), nil)
	}
	return nil
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s | %-7s | %14s | %-8s | %s", t.Date, t.Kind, t.Amount, t.Category, t.Note)
}

// Key returns the natural key of the budget.
func (b Budget) Key() BudgetKey {
	return BudgetKey{Period: b.Period, Category: b.Category}
}

func (b Budget) Validate() error {
	if err := b.Period.Validate(); err != nil {
		return NewValidationError("period", "invalid period", err)
	}
	if b.Category == "" {
		return NewValidationError("category", "category is required", nil)
	}
	if !b.Limit.IsPositive() {
		return NewValidationError("limit", "budget limit must be positive", ErrInvalidAmount)
	}
	return nil
}

// IsExceeded reports spent > limit. Spending exactly the limit is allowed.
func (b Budget) IsExceeded(spent Money) (bool, error) {
	return spent.GreaterThan(b.Limit)
}

// Remaining returns limit - spent, which is negative once overrun.
func (b Budget) Remaining(spent Money) (Money, error) {
	return b.Limit.Sub(spent)
}

// UsagePercent returns spent/limit as a percentage with two decimals.
func (b Budget) UsagePercent(spent Money) decimal.Decimal {
	if b.Limit.IsZero() {
		return decimal.Zero
	}
	return spent.Amount().DivRound(b.Limit.Amount(), 4).Mul(decimal.NewFromInt(100)).Round(2)
}

// Status evaluates the budget against spent.
func (b Budget) Status(spent Money) (BudgetStatus, error) {
	exceeded, err := b.IsExceeded(spent)
	if err != nil {
		return BudgetStatus{}, err
	}
	remaining, err := b.Remaining(spent)
	if err != nil {
		return BudgetStatus{}, err
	}
	return BudgetStatus{
		Budget:       b,
		Spent:        spent,
		Remaining:    remaining,
		Exceeded:     exceeded,
		UsagePercent: b.UsagePercent(spent),
	}, nil
}

func (b Budget) String() string {
	return fmt.Sprintf("budget [%s %s: %s]", b.Period, b.Category, b.Limit)
}
