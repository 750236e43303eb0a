// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"debtbook/internal/core"
	"debtbook/internal/ledger"
)

var errSessionClosed = errors.New("memory: session closed")

type Store struct {
	mu        sync.Mutex
	customers []core.Customer
	payments  []core.Payment
	sales     []core.CashSale
	nextID    int64
}

func New() *Store {
	return &Store{}
}

// Seed appends records verbatim, keeping their ids. Records without an id get
// a fresh one.
func (s *Store) Seed(customers []core.Customer, payments []core.Payment, sales []core.CashSale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range customers {
		c.ID = s.assign(c.ID)
		s.customers = append(s.customers, c)
	}
	for _, p := range payments {
		p.ID = s.assign(p.ID)
		s.payments = append(s.payments, p)
	}
	for _, x := range sales {
		x.ID = s.assign(x.ID)
		s.sales = append(s.sales, x)
	}
}

func (s *Store) assign(id int64) int64 {
	if id == 0 {
		s.nextID++
		return s.nextID
	}
	s.nextID = max(s.nextID, id)
	return id
}

func (s *Store) CreateCustomer(_ context.Context, c core.Customer) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.assign(0)
	c.Image = slices.Clone(c.Image)
	s.customers = append(s.customers, c)
	return c.ID, nil
}

func (s *Store) AddPayment(_ context.Context, p core.Payment) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customer(p.CustomerID); !ok {
		return 0, core.ErrCustomerNotFound
	}
	p.ID = s.assign(0)
	s.payments = append(s.payments, p)
	return p.ID, nil
}

func (s *Store) AddCashSale(_ context.Context, x core.CashSale) (int64, error) {
	if err := x.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	x.ID = s.assign(0)
	s.sales = append(s.sales, x)
	return x.ID, nil
}

func (s *Store) SearchCustomers(_ context.Context, firstName, lastName string) ([]core.Customer, error) {
	first := strings.ToLower(strings.TrimSpace(firstName))
	last := strings.ToLower(strings.TrimSpace(lastName))
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Customer
	for _, c := range s.customers {
		if strings.Contains(strings.ToLower(c.FirstName), first) &&
			strings.Contains(strings.ToLower(c.LastName), last) {
			out = append(out, c)
		}
	}
	newestFirst(out)
	return out, nil
}

func (s *Store) FindCustomersByName(_ context.Context, firstName, lastName string) ([]core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Customer
	for _, c := range s.customers {
		if c.FirstName == firstName && c.LastName == lastName {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Payment{}, core.ErrNotFound
}

func (s *Store) GetCashSale(_ context.Context, id int64) (core.CashSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.sales {
		if x.ID == id {
			return x, nil
		}
	}
	return core.CashSale{}, core.ErrNotFound
}

func (s *Store) customer(id int64) (core.Customer, bool) {
	for _, c := range s.customers {
		if c.ID == id {
			return c, true
		}
	}
	return core.Customer{}, false
}

// Session returns a read handle. It fails every call once closed.
func (s *Store) Session(ctx context.Context) (ledger.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{store: s}, nil
}

type session struct {
	store  *Store
	closed bool
}

func (x *session) Close() error {
	x.closed = true
	return nil
}

func (x *session) lock() error {
	if x.closed {
		return errSessionClosed
	}
	x.store.mu.Lock()
	return nil
}

func (x *session) ListCustomers(_ context.Context, rng core.DateRange) ([]core.Customer, error) {
	if err := x.lock(); err != nil {
		return nil, err
	}
	defer x.store.mu.Unlock()
	out := []core.Customer{}
	for _, c := range x.store.customers {
		if rng.Contains(c.RegistrationDate) {
			out = append(out, c)
		}
	}
	newestFirst(out)
	return out, nil
}

func (x *session) GetCustomer(_ context.Context, id int64) (core.Customer, error) {
	if err := x.lock(); err != nil {
		return core.Customer{}, err
	}
	defer x.store.mu.Unlock()
	c, ok := x.store.customer(id)
	if !ok {
		return core.Customer{}, core.ErrCustomerNotFound
	}
	return c, nil
}

func (x *session) ListPayments(_ context.Context) ([]core.Payment, error) {
	if err := x.lock(); err != nil {
		return nil, err
	}
	defer x.store.mu.Unlock()
	out := slices.Clone(x.store.payments)
	byTime(out)
	return out, nil
}

func (x *session) ListCustomerPayments(_ context.Context, customerID int64) ([]core.Payment, error) {
	if err := x.lock(); err != nil {
		return nil, err
	}
	defer x.store.mu.Unlock()
	out := []core.Payment{}
	for _, p := range x.store.payments {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	byTime(out)
	return out, nil
}

func (x *session) ListCashSales(_ context.Context, rng core.DateRange) ([]core.CashSale, error) {
	if err := x.lock(); err != nil {
		return nil, err
	}
	defer x.store.mu.Unlock()
	out := []core.CashSale{}
	for _, sale := range x.store.sales {
		if rng.Contains(sale.Date) {
			out = append(out, sale)
		}
	}
	slices.SortStableFunc(out, func(a, b core.CashSale) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func newestFirst(cs []core.Customer) {
	slices.SortStableFunc(cs, func(a, b core.Customer) int {
		if c := b.RegistrationDate.Compare(a.RegistrationDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func byTime(ps []core.Payment) {
	slices.SortStableFunc(ps, func(a, b core.Payment) int {
		if c := a.TransactedAt.Compare(b.TransactedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (s *Store) GetCustomer(_ context.Context, id int64) (core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customer(id)
	if !ok {
		return core.Customer{}, core.ErrCustomerNotFound
	}
	return c, nil
}
