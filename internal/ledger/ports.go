// Package ledger computes customer debts, revenue totals and monthly series
// from the records held in a ledger store.
package ledger

import (
	"context"

	"debtbook/internal/core"
)

// Ports for the storage collaborator.
type (
	// Reader is the query contract the reporting engine needs.
	Reader interface {
		// ListCustomers returns customers registered within rng, inclusive.
		ListCustomers(ctx context.Context, rng core.DateRange) ([]core.Customer, error)
		// GetCustomer returns core.ErrCustomerNotFound for unknown ids.
		GetCustomer(ctx context.Context, id int64) (core.Customer, error)
		ListPayments(ctx context.Context) ([]core.Payment, error)
		ListCustomerPayments(ctx context.Context, customerID int64) ([]core.Payment, error)
		// ListCashSales returns cash sales dated within rng, inclusive.
		ListCashSales(ctx context.Context, rng core.DateRange) ([]core.CashSale, error)
	}

	// Session is a storage handle scoped to one report call.
	Session interface {
		Reader
		Close() error
	}

	// Store hands out sessions.
	Store interface {
		Session(ctx context.Context) (Session, error)
	}

	// Recorder appends new records and answers the lookups used by data entry.
	Recorder interface {
		CreateCustomer(ctx context.Context, c core.Customer) (int64, error)
		AddPayment(ctx context.Context, p core.Payment) (int64, error)
		AddCashSale(ctx context.Context, s core.CashSale) (int64, error)
		// SearchCustomers matches first and last name by case-insensitive
		// substring; an empty filter matches everything. Newest first.
		SearchCustomers(ctx context.Context, firstName, lastName string) ([]core.Customer, error)
		// FindCustomersByName matches first and last name exactly.
		FindCustomersByName(ctx context.Context, firstName, lastName string) ([]core.Customer, error)
		GetPayment(ctx context.Context, id int64) (core.Payment, error)
		GetCashSale(ctx context.Context, id int64) (core.CashSale, error)
	}
)
