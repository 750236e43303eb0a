package ledger

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"debtbook/internal/core"
)

func eur(units int64) core.Money { return core.Cents(units * 100) }

func day(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func at(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 10, 30, 0, 0, time.UTC) }

func customer(id int64, opening int64, registered core.Date) core.Customer {
	return core.Customer{
		ID:               id,
		FirstName:        "First",
		LastName:         "Last",
		RegistrationDate: registered,
		OpeningBalance:   eur(opening),
	}
}

func payment(id, customerID, amount int64, when time.Time) core.Payment {
	return core.Payment{ID: id, CustomerID: customerID, Amount: eur(amount), TransactedAt: when}
}

func sale(id, amount int64, d core.Date) core.CashSale {
	return core.CashSale{ID: id, Date: d, ProductType: "repair", Amount: eur(amount)}
}

func TestRemainingDebt(t *testing.T) {
	c := customer(1, 150, day(2024, 3, 10))
	tests := []struct {
		name     string
		payments []core.Payment
		want     core.Money
	}{
		{"no payments", nil, eur(150)},
		{"partial", []core.Payment{payment(1, 1, 40, at(2024, 4, 1)), payment(2, 1, 10, at(2024, 5, 1))}, eur(100)},
		{"paid in full", []core.Payment{payment(1, 1, 150, at(2024, 4, 1))}, eur(0)},
		{"overpayment", []core.Payment{payment(1, 1, 200, at(2024, 4, 1))}, eur(-50)},
		{"reversal", []core.Payment{payment(1, 1, 100, at(2024, 4, 1)), payment(2, 1, -30, at(2024, 4, 2))}, eur(80)},
		{"other customers ignored", []core.Payment{payment(1, 2, 100, at(2024, 4, 1))}, eur(150)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemainingDebt(c, tt.payments)
			if got != tt.want {
				t.Fatalf("RemainingDebt = %s, want %s", got, tt.want)
			}
			if identity := c.OpeningBalance.Sub(TotalPaid(c.ID, tt.payments)); identity != got {
				t.Fatalf("opening - paid = %s, RemainingDebt = %s", identity, got)
			}
		})
	}
}

func TestRemainingDebtMonotonic(t *testing.T) {
	c := customer(1, 500, day(2024, 1, 1))
	var payments []core.Payment
	prev := RemainingDebt(c, payments)
	for i, amount := range []int64{10, 1, 250, 300} {
		payments = append(payments, payment(int64(i+1), 1, amount, at(2024, 2, i+1)))
		next := RemainingDebt(c, payments)
		if prev.Sub(next) != eur(amount) {
			t.Fatalf("payment of %d moved debt %s -> %s, want a drop of exactly %s", amount, prev, next, eur(amount))
		}
		prev = next
	}
}

func TestAggregateRevenue(t *testing.T) {
	rng := core.DateRange{Start: day(2024, 1, 1), End: day(2024, 12, 31)}
	customers := []core.Customer{
		customer(1, 100, day(2024, 2, 1)),
		customer(2, 250, day(2024, 6, 15)),
		customer(3, 999, day(2023, 12, 31)),
	}
	sales := []core.CashSale{sale(1, 50, day(2024, 7, 7)), sale(2, 999, day(2025, 1, 1))}

	book, err := Aggregate(rng, customers, nil, sales)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if book.CreditRevenue != eur(350) {
		t.Fatalf("credit revenue = %s, want 350.00", book.CreditRevenue)
	}
	if book.CashRevenue != eur(50) {
		t.Fatalf("cash revenue = %s, want 50.00", book.CashRevenue)
	}
	if book.TotalRevenue != eur(400) {
		t.Fatalf("total revenue = %s, want 400.00", book.TotalRevenue)
	}
	if book.TotalRevenue != book.CreditRevenue.Add(book.CashRevenue) {
		t.Fatal("total revenue is not credit + cash")
	}
}

func TestAggregateInclusiveBounds(t *testing.T) {
	rng := core.DateRange{Start: day(2024, 3, 1), End: day(2024, 3, 31)}
	customers := []core.Customer{
		customer(1, 10, day(2024, 3, 1)),
		customer(2, 20, day(2024, 3, 31)),
		customer(3, 40, day(2024, 2, 29)),
		customer(4, 80, day(2024, 4, 1)),
	}
	sales := []core.CashSale{sale(1, 1, day(2024, 3, 1)), sale(2, 2, day(2024, 3, 31)), sale(3, 4, day(2024, 4, 1))}

	book, err := Aggregate(rng, customers, nil, sales)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if book.CreditRevenue != eur(30) || book.CashRevenue != eur(3) {
		t.Fatalf("credit=%s cash=%s, want 30.00 and 3.00", book.CreditRevenue, book.CashRevenue)
	}
}

func TestAggregateDebts(t *testing.T) {
	customers := []core.Customer{
		customer(1, 300, day(2022, 1, 1)),
		customer(2, 50, day(2023, 1, 1)),
		customer(3, 300, day(2024, 1, 1)),
		customer(4, 120, day(2024, 2, 1)),
		customer(5, 60, day(2024, 3, 1)),
	}
	payments := []core.Payment{
		payment(1, 4, 120, at(2024, 2, 2)),
		payment(2, 5, 100, at(2024, 3, 2)),
	}
	// Debts ignore the window even though customer 1 is outside it.
	rng := core.DateRange{Start: day(2024, 1, 1), End: day(2024, 12, 31)}

	book, err := Aggregate(rng, customers, payments, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	var ids []int64
	for _, d := range book.Debts {
		if !d.RemainingDebt.IsPositive() {
			t.Fatalf("non-positive debt listed: %+v", d)
		}
		ids = append(ids, d.CustomerID)
	}
	if want := []int64{1, 3, 2}; !slices.Equal(ids, want) {
		t.Fatalf("debt order = %v, want %v", ids, want)
	}
	if book.TotalRemainingDebt != eur(650) {
		t.Fatalf("total remaining = %s, want 650.00", book.TotalRemainingDebt)
	}
}

func TestAggregateEmpty(t *testing.T) {
	book, err := Aggregate(core.DateRange{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if book.Debts == nil || len(book.Debts) != 0 {
		t.Fatalf("Debts = %#v, want empty non-nil slice", book.Debts)
	}
	if !book.TotalRevenue.IsZero() || !book.TotalRemainingDebt.IsZero() {
		t.Fatalf("unexpected totals: %+v", book)
	}
}

func TestAggregateDefaultRangeIsAllTime(t *testing.T) {
	customers := []core.Customer{
		customer(1, 100, day(2019, 5, 5)),
		customer(2, 200, day(2022, 8, 8)),
		customer(3, 300, day(2025, 1, 1)),
	}
	sales := []core.CashSale{sale(1, 7, day(2020, 1, 1)), sale(2, 11, day(2024, 12, 31))}

	def, err := Aggregate(core.DateRange{}, customers, nil, sales)
	if err != nil {
		t.Fatalf("Aggregate default: %v", err)
	}
	all, err := Aggregate(core.AllTime, customers, nil, sales)
	if err != nil {
		t.Fatalf("Aggregate all time: %v", err)
	}
	if def.TotalRevenue != all.TotalRevenue || def.TotalRevenue != eur(618) {
		t.Fatalf("default=%s alltime=%s, want 618.00", def.TotalRevenue, all.TotalRevenue)
	}

	// Only the end supplied: start falls back to the lower sentinel.
	half, err := Aggregate(core.DateRange{End: day(2022, 12, 31)}, customers, nil, sales)
	if err != nil {
		t.Fatalf("Aggregate half-open: %v", err)
	}
	if half.TotalRevenue != eur(307) {
		t.Fatalf("half-open revenue = %s, want 307.00", half.TotalRevenue)
	}
}

func TestAggregateRejectsInvertedRange(t *testing.T) {
	ranges := []core.DateRange{
		{Start: day(2024, 2, 1), End: day(2024, 1, 1)},
		{Start: day(1, 1, 2), End: day(1, 1, 1)},
	}
	for _, rng := range ranges {
		_, err := Aggregate(rng, nil, nil, nil)
		if !errors.Is(err, core.ErrInvalidDateRange) {
			t.Fatalf("%s: err = %v, want ErrInvalidDateRange", rng, err)
		}
	}
}

func TestAggregateReportsOverflow(t *testing.T) {
	huge := core.Cents(math.MaxInt64 - 10)
	cases := map[string]struct {
		customers []core.Customer
		payments  []core.Payment
		sales     []core.CashSale
	}{
		"credit revenue": {customers: []core.Customer{
			{ID: 1, RegistrationDate: day(2024, 1, 1), OpeningBalance: huge},
			{ID: 2, RegistrationDate: day(2024, 1, 2), OpeningBalance: huge},
		}},
		"credit plus cash": {
			customers: []core.Customer{{ID: 1, RegistrationDate: day(2024, 1, 1), OpeningBalance: huge}},
			sales:     []core.CashSale{{ID: 1, Date: day(2024, 1, 1), Amount: eur(1)}},
		},
		"payments": {
			customers: []core.Customer{{ID: 1, RegistrationDate: day(2024, 1, 1)}},
			payments: []core.Payment{
				{ID: 1, CustomerID: 1, Amount: huge, TransactedAt: at(2024, 1, 1)},
				{ID: 2, CustomerID: 1, Amount: huge, TransactedAt: at(2024, 1, 2)},
			},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Aggregate(core.AllTime, tc.customers, tc.payments, tc.sales)
			if !errors.Is(err, core.ErrAmountOverflow) {
				t.Fatalf("err = %v, want ErrAmountOverflow", err)
			}
		})
	}
}

func TestAggregateKeepsFirstCalendarDayBound(t *testing.T) {
	customers := []core.Customer{customer(1, 100, day(2024, 1, 1))}
	book, err := Aggregate(core.DateRange{End: day(1, 1, 1)}, customers, nil, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !book.TotalRevenue.IsZero() {
		t.Fatalf("revenue = %s, want 0.00 for a window ending 0001-01-01", book.TotalRevenue)
	}
	if book.Range.End != day(1, 1, 1) {
		t.Fatalf("end bound replaced: %s", book.Range)
	}
}

func TestBucketize(t *testing.T) {
	payments := []core.Payment{
		payment(1, 1, 10, at(2024, 3, 1)),
		payment(2, 1, 15, at(2024, 3, 31)),
		payment(3, 2, 40, at(2024, 11, 20)),
		payment(4, 2, 99, at(2023, 3, 5)),
	}
	s := Bucketize(payments, paymentAmount, paymentDay, 2024)

	for i, m := range s {
		if m.Month != i+1 {
			t.Fatalf("index %d holds month %d", i, m.Month)
		}
		var want core.Money
		switch i {
		case 2:
			want = eur(25)
		case 10:
			want = eur(40)
		}
		if m.Amount != want {
			t.Fatalf("month %d = %s, want %s", i+1, m.Amount, want)
		}
	}
	if s[0].Label != "2024-01" || s[11].Label != "2024-12" || s[2].Name != "March" {
		t.Fatalf("unexpected labels: %q %q %q", s[0].Label, s[11].Label, s[2].Name)
	}
	if s.Total() != eur(65) {
		t.Fatalf("Total = %s, want 65.00", s.Total())
	}
}

func TestBucketizeEmptyYear(t *testing.T) {
	s := Bucketize[core.CashSale](nil, saleAmount, saleDay, 2030)
	if s != EmptySeries(2030) {
		t.Fatalf("expected empty series, got %+v", s)
	}
}

func TestReportYears(t *testing.T) {
	customers := []core.Customer{customer(1, 1, day(2022, 1, 1)), customer(2, 1, day(2020, 6, 1)), customer(3, 1, day(2022, 9, 9))}
	payments := []core.Payment{payment(1, 1, 1, at(2023, 1, 1))}
	sales := []core.CashSale{sale(1, 1, day(2024, 1, 1))}

	tests := []struct {
		policy YearPolicy
		want   []int
	}{
		{YearsFromRegistrations, []int{2020, 2022}},
		{YearsFromActivity, []int{2020, 2022, 2023, 2024}},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			got := ReportYears(tt.policy, customers, payments, sales)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("ReportYears = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarizeCashSales(t *testing.T) {
	sales := []core.CashSale{
		{ProductType: "tyres", Amount: eur(80)},
		{ProductType: "oil", Amount: eur(20)},
		{ProductType: "tyres", Amount: eur(90)},
	}
	got := SummarizeCashSales(sales)
	want := []ProductSummary{
		{ProductType: "oil", Count: 1, Total: eur(20)},
		{ProductType: "tyres", Count: 2, Total: eur(170)},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("SummarizeCashSales = %+v, want %+v", got, want)
	}
}

// fakeStore serves fixed records and counts open sessions.
type fakeStore struct {
	customers []core.Customer
	payments  []core.Payment
	sales     []core.CashSale
	err       error
	open      int
	opened    int
}

type fakeSession struct{ s *fakeStore }

func (f *fakeStore) Session(context.Context) (Session, error) {
	f.open++
	f.opened++
	return fakeSession{f}, nil
}

func (s fakeSession) Close() error {
	s.s.open--
	return nil
}

func (s fakeSession) ListCustomers(_ context.Context, rng core.DateRange) ([]core.Customer, error) {
	if s.s.err != nil {
		return nil, s.s.err
	}
	var out []core.Customer
	for _, c := range s.s.customers {
		if rng.Contains(c.RegistrationDate) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s fakeSession) GetCustomer(_ context.Context, id int64) (core.Customer, error) {
	for _, c := range s.s.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Customer{}, core.ErrCustomerNotFound
}

func (s fakeSession) ListPayments(context.Context) ([]core.Payment, error) {
	return slices.Clone(s.s.payments), nil
}

func (s fakeSession) ListCustomerPayments(_ context.Context, id int64) ([]core.Payment, error) {
	var out []core.Payment
	for _, p := range s.s.payments {
		if p.CustomerID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s fakeSession) ListCashSales(_ context.Context, rng core.DateRange) ([]core.CashSale, error) {
	var out []core.CashSale
	for _, x := range s.s.sales {
		if rng.Contains(x.Date) {
			out = append(out, x)
		}
	}
	return out, nil
}

func newFixtureStore() *fakeStore {
	return &fakeStore{
		customers: []core.Customer{
			customer(1, 300, day(2023, 5, 10)),
			customer(2, 120, day(2024, 3, 2)),
		},
		payments: []core.Payment{
			payment(2, 1, 100, at(2024, 3, 15)),
			payment(1, 1, 50, at(2023, 6, 1)),
			payment(3, 2, 20, at(2025, 1, 5)),
		},
		sales: []core.CashSale{
			sale(1, 30, day(2024, 3, 20)),
			sale(2, 10, day(2025, 2, 1)),
		},
	}
}

func TestReporterCashBook(t *testing.T) {
	store := newFixtureStore()
	r := NewReporter(store, YearsFromRegistrations)

	book, err := r.CashBook(context.Background(), core.DateRange{Start: day(2024, 1, 1), End: day(2024, 12, 31)})
	if err != nil {
		t.Fatalf("CashBook: %v", err)
	}
	if book.TotalRevenue != eur(150) {
		t.Fatalf("total revenue = %s, want 150.00", book.TotalRevenue)
	}
	if len(book.Debts) != 2 || book.Debts[0].CustomerID != 1 || book.Debts[0].RemainingDebt != eur(150) {
		t.Fatalf("unexpected debts: %+v", book.Debts)
	}
	if store.open != 0 || store.opened != 1 {
		t.Fatalf("sessions open=%d opened=%d, want 0 and 1", store.open, store.opened)
	}

	_, err = r.CashBook(context.Background(), core.DateRange{Start: day(1, 1, 2), End: day(1, 1, 1)})
	if !errors.Is(err, core.ErrInvalidDateRange) {
		t.Fatalf("inverted range at 0001-01-01: err = %v, want ErrInvalidDateRange", err)
	}
}

func TestReporterAnalysis(t *testing.T) {
	tests := []struct {
		policy YearPolicy
		years  []int
	}{
		{YearsFromRegistrations, []int{2023, 2024}},
		{YearsFromActivity, []int{2023, 2024, 2025}},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			r := NewReporter(newFixtureStore(), tt.policy)
			a, err := r.Analysis(context.Background())
			if err != nil {
				t.Fatalf("Analysis: %v", err)
			}
			var years []int
			for _, y := range a.Years {
				years = append(years, y.Year)
			}
			if !slices.Equal(years, tt.years) {
				t.Fatalf("years = %v, want %v", years, tt.years)
			}
		})
	}
}

func TestReporterYearReport(t *testing.T) {
	r := NewReporter(newFixtureStore(), YearsFromRegistrations)
	rep, err := r.YearReport(context.Background(), 2024)
	if err != nil {
		t.Fatalf("YearReport: %v", err)
	}
	march := 2
	if rep.WorkReceived[march].Amount != eur(120) {
		t.Fatalf("work received in March = %s", rep.WorkReceived[march].Amount)
	}
	if rep.Revenue.Payments[march].Amount != eur(100) || rep.Revenue.CashSales[march].Amount != eur(30) {
		t.Fatalf("unexpected March revenue: %+v", rep.Revenue)
	}
	if rep.Revenue.Total[march].Amount != eur(130) {
		t.Fatalf("total March revenue = %s, want 130.00", rep.Revenue.Total[march].Amount)
	}
	for i := range rep.Revenue.Total {
		if rep.Revenue.Total[i].Amount != rep.Revenue.Payments[i].Amount.Add(rep.Revenue.CashSales[i].Amount) {
			t.Fatalf("month %d total is not payments + cash sales", i+1)
		}
	}

	if _, err := r.YearReport(context.Background(), 10000); !errors.Is(err, core.ErrInvalidYear) {
		t.Fatalf("err = %v, want ErrInvalidYear", err)
	}
}

func TestReporterStatement(t *testing.T) {
	r := NewReporter(newFixtureStore(), YearsFromRegistrations)
	st, err := r.Statement(context.Background(), 1)
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if st.TotalPaid != eur(150) || st.RemainingDebt != eur(150) {
		t.Fatalf("paid=%s remaining=%s", st.TotalPaid, st.RemainingDebt)
	}
	if len(st.Payments) != 2 || st.Payments[0].ID != 1 {
		t.Fatalf("payments not in time order: %+v", st.Payments)
	}

	if _, err := r.Statement(context.Background(), 42); !errors.Is(err, core.ErrCustomerNotFound) {
		t.Fatalf("err = %v, want ErrCustomerNotFound", err)
	}
}

func TestReporterClosesSessionOnError(t *testing.T) {
	boom := errors.New("boom")
	store := newFixtureStore()
	store.err = boom
	r := NewReporter(store, YearsFromRegistrations)

	if _, err := r.Analysis(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if store.open != 0 {
		t.Fatalf("%d sessions left open", store.open)
	}
}

func TestNewReporterDefaultsPolicy(t *testing.T) {
	r := NewReporter(newFixtureStore(), YearPolicy("bogus"))
	if r.Policy() != YearsFromRegistrations {
		t.Fatalf("policy = %q", r.Policy())
	}
}

func TestReporterCustomer(t *testing.T) {
	store := newFixtureStore()
	r := NewReporter(store, YearsFromRegistrations)

	c, err := r.Customer(context.Background(), 2)
	if err != nil || c.ID != 2 {
		t.Fatalf("Customer = %+v, %v", c, err)
	}
	if _, err := r.Customer(context.Background(), 9); !errors.Is(err, core.ErrCustomerNotFound) {
		t.Fatalf("err = %v, want ErrCustomerNotFound", err)
	}
	if store.open != 0 {
		t.Fatalf("%d sessions left open", store.open)
	}
}
