package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"debtbook/internal/core"
	"debtbook/internal/ledger"

	_ "modernc.org/sqlite"
)

// timestampLayout keeps the recorded offset so the payment day is the one the
// clerk saw.
const timestampLayout = time.RFC3339

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an open, already migrated database.
func NewWithDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, queries: New(db)}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateCustomer implements ledger.Recorder
func (r *SQLiteRepository) CreateCustomer(ctx context.Context, c core.Customer) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateCustomer(ctx, CustomerRow{
		FirstName:           c.FirstName,
		LastName:            c.LastName,
		RegistrationDate:    c.RegistrationDate.String(),
		Phone:               c.Phone,
		Image:               c.Image,
		OpeningBalanceCents: c.OpeningBalance.Cents,
	})
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}

	slog.InfoContext(ctx, "Customer saved to SQLite",
		"id", id,
		"registration_date", c.RegistrationDate.String(),
		"opening_balance", c.OpeningBalance.String())

	return id, nil
}

// AddPayment implements ledger.Recorder
func (r *SQLiteRepository) AddPayment(ctx context.Context, p core.Payment) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if _, err := r.GetCustomer(ctx, p.CustomerID); err != nil {
		return 0, err
	}
	id, err := r.queries.CreatePayment(ctx, PaymentRow{
		CustomerID:   p.CustomerID,
		AmountCents:  p.Amount.Cents,
		TransactedAt: p.TransactedAt.Format(timestampLayout),
		PaymentType:  p.PaymentType,
		Description:  p.Description,
	})
	if err != nil {
		return 0, fmt.Errorf("create payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", id,
		"customer_id", p.CustomerID,
		"amount", p.Amount.String())

	return id, nil
}

// AddCashSale implements ledger.Recorder
func (r *SQLiteRepository) AddCashSale(ctx context.Context, s core.CashSale) (int64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateCashSale(ctx, CashSaleRow{
		TransactionDate: s.Date.String(),
		ProductType:     s.ProductType,
		AmountCents:     s.Amount.Cents,
		PaymentMethod:   s.PaymentMethod,
	})
	if err != nil {
		return 0, fmt.Errorf("create cash sale: %w", err)
	}

	slog.InfoContext(ctx, "Cash sale saved to SQLite",
		"id", id,
		"product_type", s.ProductType,
		"amount", s.Amount.String())

	return id, nil
}

// SearchCustomers implements ledger.Recorder
func (r *SQLiteRepository) SearchCustomers(ctx context.Context, firstName, lastName string) ([]core.Customer, error) {
	rows, err := r.queries.SearchCustomers(ctx, likePattern(firstName), likePattern(lastName))
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return customersFromRows(rows)
}

// FindCustomersByName implements ledger.Recorder
func (r *SQLiteRepository) FindCustomersByName(ctx context.Context, firstName, lastName string) ([]core.Customer, error) {
	rows, err := r.queries.FindCustomersByName(ctx, firstName, lastName)
	if err != nil {
		return nil, fmt.Errorf("find customers by name: %w", err)
	}
	return customersFromRows(rows)
}

func (r *SQLiteRepository) GetCustomer(ctx context.Context, id int64) (core.Customer, error) {
	return fetchCustomer(ctx, r.queries, id)
}

// GetPayment implements ledger.Recorder
func (r *SQLiteRepository) GetPayment(ctx context.Context, id int64) (core.Payment, error) {
	row, err := r.queries.GetPayment(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, fmt.Errorf("payment %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment by id: %w", err)
	}
	return paymentFromRow(row)
}

// GetCashSale implements ledger.Recorder
func (r *SQLiteRepository) GetCashSale(ctx context.Context, id int64) (core.CashSale, error) {
	row, err := r.queries.GetCashSale(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CashSale{}, fmt.Errorf("cash sale %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.CashSale{}, fmt.Errorf("get cash sale by id: %w", err)
	}
	return cashSaleFromRow(row)
}

// Session implements ledger.Store. Each session pins one pooled connection
// until Close.
func (r *SQLiteRepository) Session(ctx context.Context) (ledger.Session, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &session{conn: conn, queries: New(conn)}, nil
}

type session struct {
	conn    *sql.Conn
	queries *Queries
}

func (s *session) Close() error {
	return s.conn.Close()
}

func (s *session) ListCustomers(ctx context.Context, rng core.DateRange) ([]core.Customer, error) {
	rows, err := s.queries.ListCustomersBetween(ctx, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, fmt.Errorf("list customers between %s: %w", rng, err)
	}
	return customersFromRows(rows)
}

func (s *session) GetCustomer(ctx context.Context, id int64) (core.Customer, error) {
	return fetchCustomer(ctx, s.queries, id)
}

func (s *session) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := s.queries.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return paymentsFromRows(rows)
}

func (s *session) ListCustomerPayments(ctx context.Context, customerID int64) ([]core.Payment, error) {
	rows, err := s.queries.ListCustomerPayments(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list payments for customer %d: %w", customerID, err)
	}
	return paymentsFromRows(rows)
}

func (s *session) ListCashSales(ctx context.Context, rng core.DateRange) ([]core.CashSale, error) {
	rows, err := s.queries.ListCashSalesBetween(ctx, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, fmt.Errorf("list cash sales between %s: %w", rng, err)
	}
	out := make([]core.CashSale, 0, len(rows))
	for _, row := range rows {
		sale, err := cashSaleFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, nil
}

func fetchCustomer(ctx context.Context, q *Queries, id int64) (core.Customer, error) {
	row, err := q.GetCustomer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, fmt.Errorf("customer %d: %w", id, core.ErrCustomerNotFound)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer by id: %w", err)
	}
	return customerFromRow(row)
}

// likePattern turns a free-text filter into a contains pattern. LIKE
// metacharacters in the input match literally.
func likePattern(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

func customerFromRow(row CustomerRow) (core.Customer, error) {
	registered, err := core.ParseDate(row.RegistrationDate)
	if err != nil {
		return core.Customer{}, fmt.Errorf("customer %d: %w", row.ID, err)
	}
	return core.Customer{
		ID:               row.ID,
		FirstName:        row.FirstName,
		LastName:         row.LastName,
		RegistrationDate: registered,
		Phone:            row.Phone,
		Image:            row.Image,
		OpeningBalance:   core.Cents(row.OpeningBalanceCents),
	}, nil
}

func customersFromRows(rows []CustomerRow) ([]core.Customer, error) {
	out := make([]core.Customer, 0, len(rows))
	for _, row := range rows {
		c, err := customerFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func paymentFromRow(row PaymentRow) (core.Payment, error) {
	at, err := time.Parse(timestampLayout, row.TransactedAt)
	if err != nil {
		return core.Payment{}, fmt.Errorf("payment %d: parse transacted_at: %w", row.ID, err)
	}
	return core.Payment{
		ID:           row.ID,
		CustomerID:   row.CustomerID,
		Amount:       core.Cents(row.AmountCents),
		TransactedAt: at,
		PaymentType:  row.PaymentType,
		Description:  row.Description,
	}, nil
}

func paymentsFromRows(rows []PaymentRow) ([]core.Payment, error) {
	out := make([]core.Payment, 0, len(rows))
	for _, row := range rows {
		p, err := paymentFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func cashSaleFromRow(row CashSaleRow) (core.CashSale, error) {
	d, err := core.ParseDate(row.TransactionDate)
	if err != nil {
		return core.CashSale{}, fmt.Errorf("cash sale %d: %w", row.ID, err)
	}
	return core.CashSale{
		ID:            row.ID,
		Date:          d,
		ProductType:   row.ProductType,
		Amount:        core.Cents(row.AmountCents),
		PaymentMethod: row.PaymentMethod,
	}, nil
}
