package sheets

import "debtbook/internal/core"

// Column layouts of the mirror sheets.
var (
	CustomerHeader = []any{"ID", "Registration date", "First name", "Last name", "Phone", "Opening balance"}
	PaymentHeader  = []any{"ID", "Transacted at", "Customer ID", "Customer", "Amount", "Payment type", "Description"}
	CashSaleHeader = []any{"ID", "Date", "Product type", "Amount", "Payment method"}
)

const timestampLayout = "2006-01-02 15:04"

// Amounts are written as plain decimal strings so USER_ENTERED input turns
// them into numbers without float rounding.

func CustomerRow(c core.Customer) []any {
	return []any{c.ID, c.RegistrationDate.String(), c.FirstName, c.LastName, c.Phone, c.OpeningBalance.String()}
}

func PaymentRow(p core.Payment, c core.Customer) []any {
	return []any{p.ID, p.TransactedAt.Format(timestampLayout), p.CustomerID, c.FullName(), p.Amount.String(), p.PaymentType, p.Description}
}

func CashSaleRow(s core.CashSale) []any {
	return []any{s.ID, s.Date.String(), s.ProductType, s.Amount.String(), s.PaymentMethod}
}
