package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"debtbook/internal/amqp"
	"debtbook/internal/core"
	"debtbook/internal/storage/memory"
)

type published struct {
	kind amqp.EntryKind
	id   int64
}

type fakePublisher struct {
	msgs   []published
	err    error
	closed bool
}

func (f *fakePublisher) PublishEntryRecorded(_ context.Context, kind amqp.EntryKind, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{kind, id})
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestLedgerService_RecordPublishesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(), pub)
	writes := 0
	svc.OnWrite(func() { writes++ })

	cid, err := svc.RecordCustomer(ctx, core.Customer{
		FirstName: "  Ayse ", LastName: "Kaya",
		RegistrationDate: core.NewDate(2024, 1, 1), OpeningBalance: core.Cents(10000),
	})
	if err != nil {
		t.Fatalf("RecordCustomer: %v", err)
	}
	pid, err := svc.RecordPayment(ctx, core.Payment{CustomerID: cid, Amount: core.Cents(2500), TransactedAt: time.Now()})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	sid, err := svc.RecordCashSale(ctx, core.CashSale{Date: core.NewDate(2024, 1, 2), ProductType: "thread", Amount: core.Cents(300)})
	if err != nil {
		t.Fatalf("RecordCashSale: %v", err)
	}

	want := []published{{amqp.KindCustomer, cid}, {amqp.KindPayment, pid}, {amqp.KindCashSale, sid}}
	if len(pub.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(pub.msgs), len(want))
	}
	for i := range want {
		if pub.msgs[i] != want[i] {
			t.Fatalf("message %d = %+v, want %+v", i, pub.msgs[i], want[i])
		}
	}
	if writes != 3 {
		t.Fatalf("write hooks ran %d times, want 3", writes)
	}

	c, err := svc.FindCustomerByName(ctx, "Ayse", "Kaya")
	if err != nil || c.ID != cid {
		t.Fatalf("FindCustomerByName = %+v, %v (trimmed names should be stored)", c, err)
	}
}

func TestLedgerService_ValidationStopsWrites(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewLedgerService(memory.New(), pub)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"customer without first name", func() error {
			_, err := svc.RecordCustomer(context.Background(), core.Customer{LastName: "K", RegistrationDate: core.NewDate(2024, 1, 1)})
			return err
		}, core.ErrEmptyFirstName},
		{"zero payment", func() error {
			_, err := svc.RecordPayment(context.Background(), core.Payment{CustomerID: 1, TransactedAt: time.Now()})
			return err
		}, core.ErrInvalidAmount},
		{"payment for unknown customer", func() error {
			_, err := svc.RecordPayment(context.Background(), core.Payment{CustomerID: 99, Amount: core.Cents(1), TransactedAt: time.Now()})
			return err
		}, core.ErrCustomerNotFound},
		{"blank product type", func() error {
			_, err := svc.RecordCashSale(context.Background(), core.CashSale{Date: core.NewDate(2024, 1, 1), ProductType: "  ", Amount: core.Cents(1)})
			return err
		}, core.ErrEmptyProductType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("published %d messages for rejected writes", len(pub.msgs))
	}
}

func TestLedgerService_PublishFailureKeepsWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewLedgerService(store, &fakePublisher{err: errors.New("circuit breaker is open")})

	id, err := svc.RecordCashSale(ctx, core.CashSale{Date: core.NewDate(2024, 1, 2), ProductType: "thread", Amount: core.Cents(300)})
	if err != nil {
		t.Fatalf("RecordCashSale should succeed when publish fails: %v", err)
	}
	if _, err := store.GetCashSale(ctx, id); err != nil {
		t.Fatalf("sale not stored: %v", err)
	}
}

func TestLedgerService_FindCustomerByName(t *testing.T) {
	store := memory.New()
	store.Seed([]core.Customer{
		{ID: 1, FirstName: "Ali", LastName: "Yilmaz", RegistrationDate: core.NewDate(2024, 1, 1)},
		{ID: 2, FirstName: "Ali", LastName: "Yilmaz", RegistrationDate: core.NewDate(2024, 2, 1)},
		{ID: 3, FirstName: "Can", LastName: "Demir", RegistrationDate: core.NewDate(2024, 3, 1)},
	}, nil, nil)
	svc := NewLedgerService(store, nil)

	tests := []struct {
		first, last string
		wantID      int64
		wantErr     error
	}{
		{"Can", "Demir", 3, nil},
		{"Ali", "Yilmaz", 0, core.ErrAmbiguousCustomer},
		{"Nobody", "Here", 0, core.ErrCustomerNotFound},
	}
	for _, tt := range tests {
		c, err := svc.FindCustomerByName(context.Background(), tt.first, tt.last)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("%s %s: err = %v, want %v", tt.first, tt.last, err, tt.wantErr)
			}
			continue
		}
		if err != nil || c.ID != tt.wantID {
			t.Fatalf("%s %s = %+v, %v", tt.first, tt.last, c, err)
		}
	}
}

func TestLedgerService_Close(t *testing.T) {
	t.Run("nil publisher", func(t *testing.T) {
		if err := NewLedgerService(memory.New(), nil).Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})
	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		if err := NewLedgerService(memory.New(), pub).Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !pub.closed {
			t.Fatal("publisher not closed")
		}
	})
}
