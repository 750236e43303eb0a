package sheets

import (
	"context"

	"debtbook/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror copies recorded entries to a spreadsheet, one row each.
	// rowRef identifies the written row for logging.
	LedgerMirror interface {
		AppendCustomer(ctx context.Context, c core.Customer) (rowRef string, err error)
		AppendPayment(ctx context.Context, p core.Payment, c core.Customer) (rowRef string, err error)
		AppendCashSale(ctx context.Context, s core.CashSale) (rowRef string, err error)
	}
)
