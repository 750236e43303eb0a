// Package memory is a LedgerMirror that keeps rows in process. The worker
// uses it when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"debtbook/internal/core"
	ports "debtbook/internal/sheets"
)

var _ ports.LedgerMirror = (*Mirror)(nil)

type Mirror struct {
	mu     sync.Mutex
	sheets map[string][][]any
}

func New() *Mirror {
	return &Mirror{sheets: map[string][][]any{}}
}

func (m *Mirror) AppendCustomer(_ context.Context, c core.Customer) (string, error) {
	return m.append("Customers", ports.CustomerRow(c)), nil
}

func (m *Mirror) AppendPayment(_ context.Context, p core.Payment, c core.Customer) (string, error) {
	return m.append("Payments", ports.PaymentRow(p, c)), nil
}

func (m *Mirror) AppendCashSale(_ context.Context, s core.CashSale) (string, error) {
	return m.append("Cash sales", ports.CashSaleRow(s)), nil
}

// Rows returns a copy of the rows appended to sheet.
func (m *Mirror) Rows(sheet string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.sheets[sheet]...)
}

func (m *Mirror) append(sheet string, row []any) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[sheet] = append(m.sheets[sheet], row)
	return fmt.Sprintf("mem:%s!%d", sheet, len(m.sheets[sheet]))
}
