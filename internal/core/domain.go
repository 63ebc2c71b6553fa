package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date (no time component), transported as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		Date        Date
		Amount      Money
		Category    string
		Subcategory string
		Note        string
	}

	// DateRange bounds a query to [Start, End]; either side may be empty.
	DateRange struct {
		Start Date
		End   Date
	}

	// CategorySummary is one row of a by-category aggregation.
	CategorySummary struct {
		Category string
		Total    Money
		Count    int64
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyDate     = errors.New("empty date")
)

const dateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// IsEmpty returns true for the zero date (an absent optional bound).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrEmptyDate
	}
	return nil
}

// IsEmpty reports whether neither bound is set.
func (r DateRange) IsEmpty() bool {
	return r.Start.IsEmpty() && r.End.IsEmpty()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Float64 converts cents to a decimal amount for storage and transport.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

// MoneyFromFloat converts a decimal amount read from storage back to cents,
// rounding half away from zero.
func MoneyFromFloat(v float64) Money {
	if v >= 0 {
		return Money{Cents: int64(v*100 + 0.5)}
	}
	return Money{Cents: int64(v*100 - 0.5)}
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
