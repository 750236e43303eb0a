package ledger

import (
	"fmt"
	"slices"

	"debtbook/internal/core"
)

// CustomerDebt is one row of the outstanding-debt list.
type CustomerDebt struct {
	CustomerID    int64      `json:"customer_id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	RemainingDebt core.Money `json:"remaining_debt"`
}

// CashBook combines revenue for a window with the current outstanding debts.
type CashBook struct {
	Range              core.DateRange `json:"range"`
	Debts              []CustomerDebt `json:"debts"`
	TotalRemainingDebt core.Money     `json:"total_remaining_debt"`
	TotalRevenue       core.Money     `json:"total_revenue"`
	CreditRevenue      core.Money     `json:"credit_revenue"`
	CashRevenue        core.Money     `json:"cash_revenue"`
}

// Aggregate builds the cash book.
//
// Revenue counts opening balances of customers registered in rng plus cash
// sales dated in rng. Debts ignore rng: every customer is evaluated against
// all of their payments and only positive balances are listed, largest
// first with ties broken by ascending customer id.
//
// A zero rng means all time. An inverted rng is rejected with
// core.ErrInvalidDateRange.
func Aggregate(rng core.DateRange, customers []core.Customer, payments []core.Payment, sales []core.CashSale) (CashBook, error) {
	resolved, err := rng.Resolve()
	if err != nil {
		return CashBook{}, err
	}

	book := CashBook{Range: resolved, Debts: []CustomerDebt{}}

	for _, c := range customers {
		if !resolved.Contains(c.RegistrationDate) {
			continue
		}
		if book.CreditRevenue, err = book.CreditRevenue.CheckedAdd(c.OpeningBalance); err != nil {
			return CashBook{}, fmt.Errorf("credit revenue: %w", err)
		}
	}
	for _, s := range sales {
		if !resolved.Contains(s.Date) {
			continue
		}
		if book.CashRevenue, err = book.CashRevenue.CheckedAdd(s.Amount); err != nil {
			return CashBook{}, fmt.Errorf("cash revenue: %w", err)
		}
	}
	if book.TotalRevenue, err = book.CreditRevenue.CheckedAdd(book.CashRevenue); err != nil {
		return CashBook{}, fmt.Errorf("total revenue: %w", err)
	}

	paid := make(map[int64]core.Money, len(customers))
	for _, p := range payments {
		if paid[p.CustomerID], err = paid[p.CustomerID].CheckedAdd(p.Amount); err != nil {
			return CashBook{}, fmt.Errorf("payments of customer %d: %w", p.CustomerID, err)
		}
	}
	for _, c := range customers {
		remaining, err := c.OpeningBalance.CheckedSub(paid[c.ID])
		if err != nil {
			return CashBook{}, fmt.Errorf("debt of customer %d: %w", c.ID, err)
		}
		if !remaining.IsPositive() {
			continue
		}
		book.Debts = append(book.Debts, CustomerDebt{
			CustomerID:    c.ID,
			FirstName:     c.FirstName,
			LastName:      c.LastName,
			RemainingDebt: remaining,
		})
		if book.TotalRemainingDebt, err = book.TotalRemainingDebt.CheckedAdd(remaining); err != nil {
			return CashBook{}, fmt.Errorf("total remaining debt: %w", err)
		}
	}

	slices.SortFunc(book.Debts, func(a, b CustomerDebt) int {
		if c := b.RemainingDebt.Cmp(a.RemainingDebt); c != 0 {
			return c
		}
		switch {
		case a.CustomerID < b.CustomerID:
			return -1
		case a.CustomerID > b.CustomerID:
			return 1
		}
		return 0
	})

	return book, nil
}
