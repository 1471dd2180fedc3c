package core

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Accepted input layouts, tried in order.
var dateLayouts = []string{dateLayout, "02.01.2006", "02/01/2006"}

// Date is a calendar date stored at midnight UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts 2006-01-02, 02.01.2006 and 02/01/2006.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseDateOr returns def when s is blank and ParseDate(s) otherwise.
func ParseDateOr(s string, def Date) (Date, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return ParseDate(s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Period returns the year-month containing d.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// IsAfter reports whether d falls on a later calendar day than o.
func (d Date) IsAfter(o Date) bool { return d.Time.After(o.Time) }

// IsBefore reports whether d falls on an earlier calendar day than o.
func (d Date) IsBefore(o Date) bool { return d.Time.Before(o.Time) }

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows the promoted time.Time encoder so dates stay
// calendar-only on the wire.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	return d.UnmarshalText([]byte(s))
}

// Period is a calendar year-month, the granularity of budgets and monthly
// reports.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod creates a Period; call Validate for untrusted input.
func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses the YYYY-MM form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("%w: period %q must be YYYY-MM", ErrInvalidDate, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidDate, p.Month)
	}
	if p.Year < 1 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidDate, p.Year)
	}
	return nil
}

// FirstDay returns the first calendar day of the period.
func (p Period) FirstDay() Date {
	return NewDate(p.Year, p.Month, 1)
}

// LastDay returns the last calendar day of the period.
func (p Period) LastDay() Date {
	// Day 0 of the next month is the last day of this one.
	return NewDate(p.Year, p.Month+1, 0)
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
