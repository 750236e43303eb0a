package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"debtbook/internal/amqp"
	"debtbook/internal/core"
	"debtbook/internal/ledger"
	applog "debtbook/internal/log"
	"debtbook/internal/obs"
)

// Publisher announces recorded entries to the mirror worker.
type Publisher interface {
	PublishEntryRecorded(ctx context.Context, kind amqp.EntryKind, id int64) error
	Close() error
}

// LedgerService orchestrates data entry across storage and AMQP.
type LedgerService struct {
	store     ledger.Recorder
	publisher Publisher
	onWrite   []func()
}

// NewLedgerService wires storage and an optional publisher. Pass a nil
// publisher when AMQP is not configured.
func NewLedgerService(store ledger.Recorder, publisher Publisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// OnWrite registers fn to run after every successful write, e.g. to drop
// cached reports.
func (s *LedgerService) OnWrite(fn func()) {
	s.onWrite = append(s.onWrite, fn)
}

// RecordCustomer saves a new customer with its opening balance.
func (s *LedgerService) RecordCustomer(ctx context.Context, c core.Customer) (int64, error) {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	if err := c.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.CreateCustomer(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("save customer: %w", err)
	}
	s.recorded(ctx, amqp.KindCustomer, id, c.OpeningBalance.String())
	return id, nil
}

// RecordPayment saves a payment against an existing customer id.
func (s *LedgerService) RecordPayment(ctx context.Context, p core.Payment) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.AddPayment(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("save payment: %w", err)
	}
	s.recorded(ctx, amqp.KindPayment, id, p.Amount.String())
	return id, nil
}

// RecordCashSale saves a sale paid in full.
func (s *LedgerService) RecordCashSale(ctx context.Context, sale core.CashSale) (int64, error) {
	sale.ProductType = strings.TrimSpace(sale.ProductType)
	if err := sale.Validate(); err != nil {
		return 0, err
	}
	id, err := s.store.AddCashSale(ctx, sale)
	if err != nil {
		return 0, fmt.Errorf("save cash sale: %w", err)
	}
	s.recorded(ctx, amqp.KindCashSale, id, sale.Amount.String())
	return id, nil
}

// FindCustomerByName resolves an exact name to one customer. No match gives
// core.ErrCustomerNotFound and several give core.ErrAmbiguousCustomer.
func (s *LedgerService) FindCustomerByName(ctx context.Context, firstName, lastName string) (core.Customer, error) {
	matches, err := s.store.FindCustomersByName(ctx, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
	if err != nil {
		return core.Customer{}, fmt.Errorf("find customer: %w", err)
	}
	switch len(matches) {
	case 0:
		return core.Customer{}, fmt.Errorf("%s %s: %w", firstName, lastName, core.ErrCustomerNotFound)
	case 1:
		return matches[0], nil
	default:
		return core.Customer{}, fmt.Errorf("%s %s (%d matches): %w", firstName, lastName, len(matches), core.ErrAmbiguousCustomer)
	}
}

// SearchCustomers lists customers whose names contain the filters.
func (s *LedgerService) SearchCustomers(ctx context.Context, firstName, lastName string) ([]core.Customer, error) {
	out, err := s.store.SearchCustomers(ctx, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return out, nil
}

func (s *LedgerService) recorded(ctx context.Context, kind amqp.EntryKind, id int64, amount string) {
	obs.EntryRecorded(string(kind))
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogEntryRecorded(ctx, string(kind), id, amount)
	for _, fn := range s.onWrite {
		fn()
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping mirror message", "kind", kind, "id", id)
		return
	}
	// The entry is saved; a failed publish only delays the mirror.
	if err := s.publisher.PublishEntryRecorded(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry message",
			"kind", kind, "id", id, "error", err)
	}
}

// Close closes storage (when it is closable) and the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
