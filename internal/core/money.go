// Package core provides the ledger's domain types and money handling.
//
// Money is kept as integer cents so sums are exact; shopspring/decimal is
// used only at the edges, to parse user input and to format amounts.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact amount in cents. It may be negative.
type Money struct {
	Cents int64
}

var maxCents = decimal.NewFromInt(1<<63 - 1)

// MaxEntryAmount bounds a single recorded amount (100 billion). Sums over
// up to ~900k maximal entries still fit in int64 cents.
var MaxEntryAmount = Cents(1e13)

// Cents builds a Money value from a cent count.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseAmount converts a decimal string to Money.
//
// Both dot (12.34) and comma (12,34) separators are accepted and the value is
// rounded to two places, half away from zero. Signs are allowed; zero is not
// rejected here, callers validate that for their own record kind.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("-5")     -> -500 cents
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal rounds d to cents. Values that do not fit in int64 cents are
// rejected.
func FromDecimal(d decimal.Decimal) (Money, error) {
	c := d.Round(2).Shift(2)
	if c.Abs().GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: c.IntPart()}, nil
}

// Decimal returns the exact decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimal places, e.g. "-12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float64 is for metrics and charts only; never aggregate with it.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Add and Sub wrap on int64 overflow; aggregation uses CheckedAdd.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsPositive() bool  { return m.Cents > 0 }

// CheckedAdd is m+o, or ErrAmountOverflow when the sum leaves int64 cents.
func (m Money) CheckedAdd(o Money) (Money, error) {
	sum := m.Cents + o.Cents
	if (o.Cents > 0 && sum < m.Cents) || (o.Cents < 0 && sum > m.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: sum}, nil
}

// CheckedSub is m-o, or ErrAmountOverflow.
func (m Money) CheckedSub(o Money) (Money, error) {
	diff := m.Cents - o.Cents
	if (o.Cents > 0 && diff > m.Cents) || (o.Cents < 0 && diff < m.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: diff}, nil
}

// checkEntryAmount rejects amounts above MaxEntryAmount in either sign.
func checkEntryAmount(m Money) error {
	if m.Cents > MaxEntryAmount.Cents || m.Cents < -MaxEntryAmount.Cents {
		return fmt.Errorf("%w: magnitude above %s", ErrInvalidAmount, MaxEntryAmount)
	}
	return nil
}

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.Cents < o.Cents:
		return -1
	case m.Cents > o.Cents:
		return 1
	default:
		return 0
	}
}

// MarshalJSON writes the amount as a quoted decimal string ("150.00").
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
