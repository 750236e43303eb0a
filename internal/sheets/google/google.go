package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"debtbook/internal/core"
	ports "debtbook/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and credentials. Sheet names are base names;
// rows go to "<year> <base>" for the year of the entry.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	CustomersSheet     string
	PaymentsSheet      string
	CashSalesSheet     string
}

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	customersSheet string
	paymentsSheet  string
	cashSalesSheet string
}

var _ ports.LedgerMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newClient(svc, spreadsheetID, cfg), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, cfg Config) *Client {
	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		customersSheet: orDefault(cfg.CustomersSheet, "Customers"),
		paymentsSheet:  orDefault(cfg.PaymentsSheet, "Payments"),
		cashSalesSheet: orDefault(cfg.CashSalesSheet, "Cash sales"),
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials: inline JSON, a key file, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) AppendCustomer(ctx context.Context, cust core.Customer) (string, error) {
	sheet := yearPrefixedName(c.customersSheet, cust.RegistrationDate.Year())
	return c.appendRow(ctx, sheet, "A:F", ports.CustomerRow(cust))
}

func (c *Client) AppendPayment(ctx context.Context, p core.Payment, cust core.Customer) (string, error) {
	sheet := yearPrefixedName(c.paymentsSheet, p.TransactedAt.Year())
	return c.appendRow(ctx, sheet, "A:G", ports.PaymentRow(p, cust))
}

func (c *Client) AppendCashSale(ctx context.Context, s core.CashSale) (string, error) {
	sheet := yearPrefixedName(c.cashSalesSheet, s.Date.Year())
	return c.appendRow(ctx, sheet, "A:E", ports.CashSaleRow(s))
}

func (c *Client) appendRow(ctx context.Context, sheet, cols string, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!%s", sheet, cols)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
