package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Customer received goods or services on credit. OpeningBalance is the
	// amount owed at entry and never changes afterwards.
	Customer struct {
		ID               int64
		FirstName        string
		LastName         string
		RegistrationDate Date
		Phone            string
		Image            []byte
		OpeningBalance   Money
	}

	// Payment reduces a customer's debt. A negative amount is a reversal.
	Payment struct {
		ID           int64
		CustomerID   int64
		Amount       Money
		TransactedAt time.Time
		PaymentType  string
		Description  string
	}

	// CashSale is paid in full at the time of sale and has no customer.
	CashSale struct {
		ID            int64
		Date          Date
		ProductType   string
		Amount        Money
		PaymentMethod string
	}
)

var (
	ErrDateOutOfRange    = errors.New("date outside 0000-01-01..9999-12-31")
	ErrAmountOverflow    = errors.New("amount sum overflows")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDateRange  = errors.New("start date is after end date")
	ErrInvalidYear       = errors.New("invalid year")
	ErrEmptyFirstName    = errors.New("empty first name")
	ErrEmptyLastName     = errors.New("empty last name")
	ErrEmptyProductType  = errors.New("empty product type")
	ErrMissingCustomer   = errors.New("payment has no customer")
	ErrMissingTimestamp  = errors.New("missing transaction time")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrAmbiguousCustomer = errors.New("more than one customer matches")
	ErrNotFound          = errors.New("record not found")
)

const maxTextLen = 200

func (c Customer) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" {
		return ErrEmptyFirstName
	}
	if strings.TrimSpace(c.LastName) == "" {
		return ErrEmptyLastName
	}
	if len(c.FirstName) > maxTextLen || len(c.LastName) > maxTextLen {
		return errors.New("name too long (max 200 characters)")
	}
	if err := c.RegistrationDate.Validate(); err != nil {
		return errors.New("invalid registration date: " + err.Error())
	}
	if err := checkEntryAmount(c.OpeningBalance); err != nil {
		return err
	}
	return nil
}

// FullName joins first and last name for display.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + CleanSurname(c.LastName))
}

func (p Payment) Validate() error {
	if p.CustomerID <= 0 {
		return ErrMissingCustomer
	}
	if p.TransactedAt.IsZero() {
		return ErrMissingTimestamp
	}
	if p.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if err := checkEntryAmount(p.Amount); err != nil {
		return err
	}
	if len(p.Description) > maxTextLen {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Day is the calendar date the payment was taken on.
func (p Payment) Day() Date {
	return DateOf(p.TransactedAt)
}

func (s CashSale) Validate() error {
	if err := s.Date.Validate(); err != nil {
		return errors.New("invalid transaction date: " + err.Error())
	}
	if strings.TrimSpace(s.ProductType) == "" {
		return ErrEmptyProductType
	}
	if len(s.ProductType) > maxTextLen {
		return errors.New("product type too long (max 200 characters)")
	}
	if s.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return checkEntryAmount(s.Amount)
}

// CleanSurname drops a parenthesized note from a last name,
// e.g. "Yilmaz (bakery)" becomes "Yilmaz".
func CleanSurname(lastName string) string {
	open := strings.Index(lastName, "(")
	if open < 0 || !strings.Contains(lastName[open:], ")") {
		return lastName
	}
	return strings.TrimSpace(lastName[:open])
}
