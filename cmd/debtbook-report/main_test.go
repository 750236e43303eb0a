package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"debtbook/internal/core"
	"debtbook/internal/ledger"
	"debtbook/internal/storage/memory"
)

func fixtureReporter() *ledger.Reporter {
	store := memory.New()
	store.Seed(
		[]core.Customer{
			{ID: 1, FirstName: "Ayse", LastName: "Kaya", RegistrationDate: core.NewDate(2024, 1, 10), OpeningBalance: core.Cents(10000)},
		},
		[]core.Payment{
			{ID: 1, CustomerID: 1, Amount: core.Cents(2500), TransactedAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)},
		},
		[]core.CashSale{
			{ID: 1, Date: core.NewDate(2024, 3, 5), ProductType: "thread", Amount: core.Cents(300)},
		},
	)
	return ledger.NewReporter(store, ledger.YearsFromRegistrations)
}

func TestRunJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), &buf, fixtureReporter(), options{json: true}); err != nil {
		t.Fatalf("run: %v", err)
	}

	var out struct {
		CashBook struct {
			TotalRevenue       string `json:"total_revenue"`
			TotalRemainingDebt string `json:"total_remaining_debt"`
		} `json:"cash_book"`
		Analysis []struct {
			Year int `json:"year"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
	if out.CashBook.TotalRevenue != "103.00" || out.CashBook.TotalRemainingDebt != "75.00" {
		t.Errorf("cash book = %+v", out.CashBook)
	}
	if len(out.Analysis) != 1 || out.Analysis[0].Year != 2024 {
		t.Errorf("analysis years = %+v", out.Analysis)
	}
}

func TestRunText(t *testing.T) {
	var buf bytes.Buffer
	opts := options{start: "2024-03-01", end: "2024-03-31", year: 2024}
	if err := run(context.Background(), &buf, fixtureReporter(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := buf.String()
	for _, want := range []string{"2024-03-01..2024-03-31", "3.00", "Ayse Kaya", "75.00", "March"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunRejectsBadRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantErr    error
	}{
		{"inverted", "2024-05-01", "2024-04-01", core.ErrInvalidDateRange},
		{"malformed start", "05/01/2024", "", nil},
		{"inverted at first calendar day", "0001-01-02", "0001-01-01", core.ErrInvalidDateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), &bytes.Buffer{}, fixtureReporter(), options{start: tt.start, end: tt.end})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePolicy(t *testing.T) {
	for _, p := range []ledger.YearPolicy{ledger.YearsFromRegistrations, ledger.YearsFromActivity} {
		if err := validatePolicy(p); err != nil {
			t.Errorf("%s rejected: %v", p, err)
		}
	}
	for _, p := range []ledger.YearPolicy{"", "calendar", "Activity"} {
		if err := validatePolicy(p); err == nil {
			t.Errorf("%q accepted", p)
		}
	}
}
