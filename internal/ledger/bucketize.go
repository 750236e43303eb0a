package ledger

import (
	"fmt"
	"slices"
	"time"

	"debtbook/internal/core"
)

// MonthAmount is one point of a monthly series.
type MonthAmount struct {
	Month  int        `json:"month"` // 1-12
	Label  string     `json:"label"` // YYYY-MM
	Name   string     `json:"name"`  // English month name
	Amount core.Money `json:"amount"`
}

// MonthlySeries always holds January..December in order.
type MonthlySeries [12]MonthAmount

// EmptySeries returns the zero series for year.
func EmptySeries(year int) MonthlySeries {
	var s MonthlySeries
	for i := range s {
		m := time.Month(i + 1)
		s[i] = MonthAmount{
			Month: i + 1,
			Label: fmt.Sprintf("%04d-%02d", year, i+1),
			Name:  m.String(),
		}
	}
	return s
}

// Bucketize sums amount per calendar month over the records dated in year.
// Months without records stay at zero.
func Bucketize[T any](records []T, amount func(T) core.Money, date func(T) core.Date, year int) MonthlySeries {
	s := EmptySeries(year)
	for _, r := range records {
		d := date(r)
		if d.Year() != year {
			continue
		}
		i := d.Month() - 1
		s[i].Amount = s[i].Amount.Add(amount(r))
	}
	return s
}

// Plus adds two series month by month. The labels of s are kept.
func (s MonthlySeries) Plus(o MonthlySeries) MonthlySeries {
	out := s
	for i := range out {
		out[i].Amount = s[i].Amount.Add(o[i].Amount)
	}
	return out
}

// Total sums the whole series.
func (s MonthlySeries) Total() core.Money {
	var total core.Money
	for _, m := range s {
		total = total.Add(m.Amount)
	}
	return total
}

// Field accessors shared by the reporter and tests.
func customerOpening(c core.Customer) core.Money { return c.OpeningBalance }
func customerRegistered(c core.Customer) core.Date { return c.RegistrationDate }
func paymentAmount(p core.Payment) core.Money      { return p.Amount }
func paymentDay(p core.Payment) core.Date          { return p.Day() }
func saleAmount(s core.CashSale) core.Money        { return s.Amount }
func saleDay(s core.CashSale) core.Date            { return s.Date }

// YearPolicy decides which years get an analytical report.
type YearPolicy string

const (
	// YearsFromRegistrations reports only years in which at least one
	// customer registered, even if payments or cash sales happened in others.
	YearsFromRegistrations YearPolicy = "registrations"
	// YearsFromActivity reports every year with any customer, payment or
	// cash-sale record.
	YearsFromActivity YearPolicy = "activity"
)

// IsValid returns true if the policy is known
func (p YearPolicy) IsValid() bool {
	switch p {
	case YearsFromRegistrations, YearsFromActivity:
		return true
	default:
		return false
	}
}

// ReportYears returns the distinct years selected by policy, ascending.
// Unknown policies fall back to YearsFromRegistrations.
func ReportYears(policy YearPolicy, customers []core.Customer, payments []core.Payment, sales []core.CashSale) []int {
	seen := map[int]struct{}{}
	for _, c := range customers {
		seen[c.RegistrationDate.Year()] = struct{}{}
	}
	if policy == YearsFromActivity {
		for _, p := range payments {
			seen[p.TransactedAt.Year()] = struct{}{}
		}
		for _, s := range sales {
			seen[s.Date.Year()] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}
