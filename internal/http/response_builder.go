package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"debtbook/internal/core"
	"debtbook/internal/ledger"
	applog "debtbook/internal/log"
	"debtbook/internal/middleware/trace"
)

type customerResponse struct {
	ID               int64      `json:"id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	FullName         string     `json:"full_name"`
	RegistrationDate core.Date  `json:"registration_date"`
	Phone            string     `json:"phone,omitempty"`
	OpeningBalance   core.Money `json:"opening_balance"`
	HasImage         bool       `json:"has_image"`
}

type paymentResponse struct {
	ID           int64      `json:"id"`
	CustomerID   int64      `json:"customer_id"`
	Amount       core.Money `json:"amount"`
	TransactedAt time.Time  `json:"transacted_at"`
	PaymentType  string     `json:"payment_type,omitempty"`
	Description  string     `json:"description,omitempty"`
}

type cashSaleResponse struct {
	ID            int64      `json:"id"`
	Date          core.Date  `json:"date"`
	ProductType   string     `json:"product_type"`
	Amount        core.Money `json:"amount"`
	PaymentMethod string     `json:"payment_method,omitempty"`
}

type statementResponse struct {
	Customer      customerResponse  `json:"customer"`
	Payments      []paymentResponse `json:"payments"`
	TotalPaid     core.Money        `json:"total_paid"`
	RemainingDebt core.Money        `json:"remaining_debt"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

func toCustomerResponse(c core.Customer) customerResponse {
	return customerResponse{
		ID:               c.ID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		FullName:         c.FullName(),
		RegistrationDate: c.RegistrationDate,
		Phone:            c.Phone,
		OpeningBalance:   c.OpeningBalance,
		HasImage:         len(c.Image) > 0,
	}
}

func toCustomerResponses(cs []core.Customer) []customerResponse {
	out := make([]customerResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCustomerResponse(c))
	}
	return out
}

func toPaymentResponse(p core.Payment) paymentResponse {
	return paymentResponse{
		ID:           p.ID,
		CustomerID:   p.CustomerID,
		Amount:       p.Amount,
		TransactedAt: p.TransactedAt,
		PaymentType:  p.PaymentType,
		Description:  p.Description,
	}
}

func toStatementResponse(st ledger.Statement) statementResponse {
	payments := make([]paymentResponse, 0, len(st.Payments))
	for _, p := range st.Payments {
		payments = append(payments, toPaymentResponse(p))
	}
	return statementResponse{
		Customer:      toCustomerResponse(st.Customer),
		Payments:      payments,
		TotalPaid:     st.TotalPaid,
		RemainingDebt: st.RemainingDebt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON writes an already encoded body, as served from the report cache.
func writeRawJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := trace.GetRequestID(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

// writeServiceError maps domain errors to status codes. Anything unknown is
// logged and reported as 500 without its message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidDateRange),
		errors.Is(err, core.ErrInvalidYear):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrCustomerNotFound), errors.Is(err, core.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrAmbiguousCustomer):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method+" "+r.URL.Path, applog.NewFields())
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// writeValidationError answers 422 for records that failed Validate.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusUnprocessableEntity, err.Error())
}
