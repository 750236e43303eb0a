package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Row types mirror the table columns.
type (
	CustomerRow struct {
		ID                  int64
		FirstName           string
		LastName            string
		RegistrationDate    string
		Phone               string
		Image               []byte
		OpeningBalanceCents int64
	}

	PaymentRow struct {
		ID           int64
		CustomerID   int64
		AmountCents  int64
		TransactedAt string
		PaymentType  string
		Description  string
	}

	CashSaleRow struct {
		ID              int64
		TransactionDate string
		ProductType     string
		AmountCents     int64
		PaymentMethod   string
	}
)

const customerColumns = `id, first_name, last_name, registration_date, phone, image, opening_balance_cents`

const createCustomer = `INSERT INTO customers (first_name, last_name, registration_date, phone, image, opening_balance_cents)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateCustomer(ctx context.Context, arg CustomerRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCustomer,
		arg.FirstName, arg.LastName, arg.RegistrationDate, arg.Phone, arg.Image, arg.OpeningBalanceCents,
	).Scan(&id)
	return id, err
}

const getCustomer = `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`

func (q *Queries) GetCustomer(ctx context.Context, id int64) (CustomerRow, error) {
	return scanCustomer(q.db.QueryRowContext(ctx, getCustomer, id))
}

const listCustomersBetween = `SELECT ` + customerColumns + ` FROM customers
WHERE registration_date BETWEEN ? AND ?
ORDER BY registration_date DESC, id DESC`

func (q *Queries) ListCustomersBetween(ctx context.Context, start, end string) ([]CustomerRow, error) {
	rows, err := q.db.QueryContext(ctx, listCustomersBetween, start, end)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const searchCustomers = `SELECT ` + customerColumns + ` FROM customers
WHERE first_name LIKE ? ESCAPE '\' AND last_name LIKE ? ESCAPE '\'
ORDER BY registration_date DESC, id DESC`

// SearchCustomers takes LIKE patterns; SQLite LIKE is case-insensitive for
// ASCII.
func (q *Queries) SearchCustomers(ctx context.Context, firstPattern, lastPattern string) ([]CustomerRow, error) {
	rows, err := q.db.QueryContext(ctx, searchCustomers, firstPattern, lastPattern)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const findCustomersByName = `SELECT ` + customerColumns + ` FROM customers
WHERE first_name = ? AND last_name = ?
ORDER BY id`

func (q *Queries) FindCustomersByName(ctx context.Context, firstName, lastName string) ([]CustomerRow, error) {
	rows, err := q.db.QueryContext(ctx, findCustomersByName, firstName, lastName)
	if err != nil {
		return nil, err
	}
	return collectCustomers(rows)
}

const paymentColumns = `id, customer_id, amount_cents, transacted_at, payment_type, description`

const createPayment = `INSERT INTO payments (customer_id, amount_cents, transacted_at, payment_type, description)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreatePayment(ctx context.Context, arg PaymentRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createPayment,
		arg.CustomerID, arg.AmountCents, arg.TransactedAt, arg.PaymentType, arg.Description,
	).Scan(&id)
	return id, err
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`

func (q *Queries) GetPayment(ctx context.Context, id int64) (PaymentRow, error) {
	var p PaymentRow
	err := q.db.QueryRowContext(ctx, getPayment, id).Scan(
		&p.ID, &p.CustomerID, &p.AmountCents, &p.TransactedAt, &p.PaymentType, &p.Description)
	return p, err
}

const listPayments = `SELECT ` + paymentColumns + ` FROM payments ORDER BY transacted_at, id`

func (q *Queries) ListPayments(ctx context.Context) ([]PaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, listPayments)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

const listCustomerPayments = `SELECT ` + paymentColumns + ` FROM payments
WHERE customer_id = ?
ORDER BY transacted_at, id`

func (q *Queries) ListCustomerPayments(ctx context.Context, customerID int64) ([]PaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, listCustomerPayments, customerID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

const cashSaleColumns = `id, transaction_date, product_type, amount_cents, payment_method`

const createCashSale = `INSERT INTO cash_sales (transaction_date, product_type, amount_cents, payment_method)
VALUES (?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateCashSale(ctx context.Context, arg CashSaleRow) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createCashSale,
		arg.TransactionDate, arg.ProductType, arg.AmountCents, arg.PaymentMethod,
	).Scan(&id)
	return id, err
}

const getCashSale = `SELECT ` + cashSaleColumns + ` FROM cash_sales WHERE id = ?`

func (q *Queries) GetCashSale(ctx context.Context, id int64) (CashSaleRow, error) {
	var s CashSaleRow
	err := q.db.QueryRowContext(ctx, getCashSale, id).Scan(
		&s.ID, &s.TransactionDate, &s.ProductType, &s.AmountCents, &s.PaymentMethod)
	return s, err
}

const listCashSalesBetween = `SELECT ` + cashSaleColumns + ` FROM cash_sales
WHERE transaction_date BETWEEN ? AND ?
ORDER BY transaction_date, id`

func (q *Queries) ListCashSalesBetween(ctx context.Context, start, end string) ([]CashSaleRow, error) {
	rows, err := q.db.QueryContext(ctx, listCashSalesBetween, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CashSaleRow
	for rows.Next() {
		var s CashSaleRow
		if err := rows.Scan(&s.ID, &s.TransactionDate, &s.ProductType, &s.AmountCents, &s.PaymentMethod); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(r rowScanner) (CustomerRow, error) {
	var c CustomerRow
	err := r.Scan(&c.ID, &c.FirstName, &c.LastName, &c.RegistrationDate, &c.Phone, &c.Image, &c.OpeningBalanceCents)
	return c, err
}

func collectCustomers(rows *sql.Rows) ([]CustomerRow, error) {
	defer rows.Close()
	var out []CustomerRow
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func collectPayments(rows *sql.Rows) ([]PaymentRow, error) {
	defer rows.Close()
	var out []PaymentRow
	for rows.Next() {
		var p PaymentRow
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.AmountCents, &p.TransactedAt, &p.PaymentType, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
