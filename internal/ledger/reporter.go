package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"debtbook/internal/core"
)

// RevenueSeries splits monthly revenue into its two sources.
type RevenueSeries struct {
	Payments  MonthlySeries `json:"payments"`
	CashSales MonthlySeries `json:"cash_sales"`
	Total     MonthlySeries `json:"total"`
}

// YearReport is the chart data for one calendar year.
type YearReport struct {
	Year         int           `json:"year"`
	WorkReceived MonthlySeries `json:"work_received"`
	Revenue      RevenueSeries `json:"revenue"`
}

// Analysis holds one report per selected year, ascending.
type Analysis struct {
	Policy YearPolicy   `json:"policy"`
	Years  []YearReport `json:"years"`
}

// Statement is a single customer's account.
type Statement struct {
	Customer      core.Customer
	Payments      []core.Payment
	TotalPaid     core.Money
	RemainingDebt core.Money
}

// ProductSummary aggregates cash sales of one product type.
type ProductSummary struct {
	ProductType string     `json:"product_type"`
	Count       int        `json:"count"`
	Total       core.Money `json:"total"`
}

// Reporter assembles reports from a Store. Every call opens its own session
// and closes it before returning.
type Reporter struct {
	store  Store
	policy YearPolicy
}

// NewReporter creates a reporter. An invalid policy falls back to
// YearsFromRegistrations.
func NewReporter(store Store, policy YearPolicy) *Reporter {
	if !policy.IsValid() {
		policy = YearsFromRegistrations
	}
	return &Reporter{store: store, policy: policy}
}

// Policy returns the year policy in effect.
func (r *Reporter) Policy() YearPolicy {
	return r.policy
}

func (r *Reporter) withSession(ctx context.Context, fn func(Session) error) (err error) {
	s, err := r.store.Session(ctx)
	if err != nil {
		return fmt.Errorf("open ledger session: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close ledger session: %w", cerr)
		}
	}()
	return fn(s)
}

// CashBook computes revenue for rng and the current outstanding debts.
// A zero rng means all time.
func (r *Reporter) CashBook(ctx context.Context, rng core.DateRange) (CashBook, error) {
	resolved, err := rng.Resolve()
	if err != nil {
		return CashBook{}, err
	}

	var book CashBook
	err = r.withSession(ctx, func(s Session) error {
		customers, err := s.ListCustomers(ctx, core.AllTime)
		if err != nil {
			return fmt.Errorf("list customers: %w", err)
		}
		payments, err := s.ListPayments(ctx)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		sales, err := s.ListCashSales(ctx, resolved)
		if err != nil {
			return fmt.Errorf("list cash sales: %w", err)
		}
		book, err = Aggregate(resolved, customers, payments, sales)
		return err
	})
	return book, err
}

// Analysis builds a YearReport for every year selected by the policy.
func (r *Reporter) Analysis(ctx context.Context) (Analysis, error) {
	out := Analysis{Policy: r.policy, Years: []YearReport{}}
	err := r.withSession(ctx, func(s Session) error {
		customers, payments, sales, err := loadAll(ctx, s)
		if err != nil {
			return err
		}
		for _, year := range ReportYears(r.policy, customers, payments, sales) {
			out.Years = append(out.Years, buildYearReport(year, customers, payments, sales))
		}
		return nil
	})
	return out, err
}

// YearReport builds the chart data for a single year, whatever the policy.
func (r *Reporter) YearReport(ctx context.Context, year int) (YearReport, error) {
	if year < core.MinDate.Year() || year > core.MaxDate.Year() {
		return YearReport{}, fmt.Errorf("%w: %d", core.ErrInvalidYear, year)
	}
	var out YearReport
	err := r.withSession(ctx, func(s Session) error {
		customers, payments, sales, err := loadAll(ctx, s)
		if err != nil {
			return err
		}
		out = buildYearReport(year, customers, payments, sales)
		return nil
	})
	return out, err
}

// Statement returns a customer's payments with their total and the
// remaining debt.
func (r *Reporter) Statement(ctx context.Context, customerID int64) (Statement, error) {
	var st Statement
	err := r.withSession(ctx, func(s Session) error {
		c, err := s.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		payments, err := s.ListCustomerPayments(ctx, customerID)
		if err != nil {
			return fmt.Errorf("list payments for customer %d: %w", customerID, err)
		}
		slices.SortStableFunc(payments, func(a, b core.Payment) int {
			return a.TransactedAt.Compare(b.TransactedAt)
		})
		st = Statement{
			Customer:      c,
			Payments:      payments,
			TotalPaid:     TotalPaid(c.ID, payments),
			RemainingDebt: RemainingDebt(c, payments),
		}
		return nil
	})
	return st, err
}

// Customer loads a single customer, image included.
func (r *Reporter) Customer(ctx context.Context, id int64) (core.Customer, error) {
	var c core.Customer
	err := r.withSession(ctx, func(s Session) (err error) {
		c, err = s.GetCustomer(ctx, id)
		return err
	})
	return c, err
}

// CashSalesSummary groups all cash sales by product type.
func (r *Reporter) CashSalesSummary(ctx context.Context) ([]ProductSummary, error) {
	var out []ProductSummary
	err := r.withSession(ctx, func(s Session) error {
		sales, err := s.ListCashSales(ctx, core.AllTime)
		if err != nil {
			return fmt.Errorf("list cash sales: %w", err)
		}
		out = SummarizeCashSales(sales)
		return nil
	})
	return out, err
}

// SummarizeCashSales counts and sums sales per product type, ordered by
// product type.
func SummarizeCashSales(sales []core.CashSale) []ProductSummary {
	idx := map[string]int{}
	out := []ProductSummary{}
	for _, s := range sales {
		i, ok := idx[s.ProductType]
		if !ok {
			i = len(out)
			idx[s.ProductType] = i
			out = append(out, ProductSummary{ProductType: s.ProductType})
		}
		out[i].Count++
		out[i].Total = out[i].Total.Add(s.Amount)
	}
	slices.SortFunc(out, func(a, b ProductSummary) int {
		return strings.Compare(a.ProductType, b.ProductType)
	})
	return out
}

func loadAll(ctx context.Context, s Reader) ([]core.Customer, []core.Payment, []core.CashSale, error) {
	customers, err := s.ListCustomers(ctx, core.AllTime)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list customers: %w", err)
	}
	payments, err := s.ListPayments(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list payments: %w", err)
	}
	sales, err := s.ListCashSales(ctx, core.AllTime)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list cash sales: %w", err)
	}
	return customers, payments, sales, nil
}

func buildYearReport(year int, customers []core.Customer, payments []core.Payment, sales []core.CashSale) YearReport {
	work := Bucketize(customers, customerOpening, customerRegistered, year)
	paid := Bucketize(payments, paymentAmount, paymentDay, year)
	cash := Bucketize(sales, saleAmount, saleDay, year)
	return YearReport{
		Year:         year,
		WorkReceived: work,
		Revenue: RevenueSeries{
			Payments:  paid,
			CashSales: cash,
			Total:     paid.Plus(cash),
		},
	}
}
