package ledger

import "debtbook/internal/core"

// RemainingDebt is the opening balance minus every payment recorded for the
// customer. It is not floored at zero: overpayment yields a negative debt.
// Payments belonging to other customers are ignored.
func RemainingDebt(c core.Customer, payments []core.Payment) core.Money {
	return c.OpeningBalance.Sub(TotalPaid(c.ID, payments))
}

// TotalPaid sums the payments recorded for customerID.
func TotalPaid(customerID int64, payments []core.Payment) core.Money {
	var paid core.Money
	for _, p := range payments {
		if p.CustomerID == customerID {
			paid = paid.Add(p.Amount)
		}
	}
	return paid
}
