// Package core holds the ledger's value types: money, calendar dates and
// periods, categories, transactions and budgets.
//
// This file contains the Money type. Amounts are exact decimals kept at two
// fractional digits with banker's rounding (round half to even) applied on
// every operation that can produce extra precision.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Scale is the number of fractional digits every Money amount carries.
const Scale = 2

// Money is an immutable decimal amount bound to an ISO 4217 currency code.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney rounds amount half-to-even to two digits and binds it to the
// currency code. The code is trimmed and upper-cased before validation.
func NewMoney(amount decimal.Decimal, code string) (Money, error) {
	cur, err := NormalizeCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: amount.RoundBank(Scale), currency: cur}, nil
}

// MustMoney is NewMoney for constants and tests; it panics on a bad currency.
func MustMoney(amount string, code string) Money {
	m, err := ParseMoney(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
//
// code must already be a valid ISO 4217 code, such as the engine currency
// returned by NormalizeCurrency; Zero does not report errors. An unknown code
// is kept as given so that adding a real amount to the result fails with
// ErrIncompatibleCurrency.
func Zero(code string) Money {
	cur, err := NormalizeCurrency(code)
	if err != nil {
		cur = code
	}
	return Money{amount: decimal.Zero, currency: cur}
}

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// surrounding whitespace. Signed values parse; positivity is a transaction
// rule, not a money rule.
//
// Examples:
//
//	ParseMoney("12.34", "EUR")  -> 12.34 EUR
//	ParseMoney("12,345", "EUR") -> 12.34 EUR (half-even)
//	ParseMoney("12.355", "EUR") -> 12.36 EUR (half-even)
func ParseMoney(raw, code string) (Money, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return NewMoney(d, code)
}

// NormalizeCurrency validates an ISO 4217 code and returns it upper-cased.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	unit, err := currency.ParseISO(c)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return unit.String(), nil
}

// Amount returns the rounded decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO code.
func (m Money) Currency() string { return m.currency }

func (m Money) sameCurrency(o Money) error {
	if m.currency != o.currency {
		return fmt.Errorf("%w: %s and %s", ErrIncompatibleCurrency, m.currency, o.currency)
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(o.amount).RoundBank(Scale), currency: m.currency}, nil
}

// Sub returns m - o.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(o.amount).RoundBank(Scale), currency: m.currency}, nil
}

// Mul scales m by factor and rounds half-to-even.
func (m Money) Mul(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor).RoundBank(Scale), currency: m.currency}
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	return m.amount.Cmp(o.amount), nil
}

// GreaterThan reports m > o.
func (m Money) GreaterThan(o Money) (bool, error) {
	c, err := m.Cmp(o)
	return c > 0, err
}

// LessThan reports m < o.
func (m Money) LessThan(o Money) (bool, error) {
	c, err := m.Cmp(o)
	return c < 0, err
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

func (m Money) IsNegative() bool { return m.amount.IsNegative() }

func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) IsZero() bool { return m.amount.IsZero() }

// String renders the amount with exactly two digits followed by the code.
func (m Money) String() string {
	return m.amount.StringFixed(Scale) + " " + m.currency
}

type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(Scale), Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMoney(raw.Amount, raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
