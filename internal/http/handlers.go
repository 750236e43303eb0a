package http

import (
	"net/http"
	"strings"
	"time"

	"debtbook/internal/core"
)

type customerRequest struct {
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	RegistrationDate core.Date  `json:"registration_date"`
	Phone            string     `json:"phone"`
	OpeningBalance   core.Money `json:"opening_balance"`
	// Image is base64 in JSON.
	Image []byte `json:"image"`
}

type paymentRequest struct {
	Amount       core.Money `json:"amount"`
	TransactedAt string     `json:"transacted_at"`
	PaymentType  string     `json:"payment_type"`
	Description  string     `json:"description"`
}

type cashSaleRequest struct {
	Date          core.Date  `json:"date"`
	ProductType   string     `json:"product_type"`
	Amount        core.Money `json:"amount"`
	PaymentMethod string     `json:"payment_method"`
}

// handleListCustomers searches by partial first_name/last_name. With
// exact=true both names must match one customer exactly.
func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	first := sanitizeInput(q.Get("first_name"))
	last := sanitizeInput(q.Get("last_name"))

	if q.Get("exact") == "true" {
		c, err := s.ledger.FindCustomerByName(r.Context(), first, last)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toCustomerResponse(c))
		return
	}

	customers, err := s.ledger.SearchCustomers(r.Context(), first, last)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerResponses(customers))
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := DecodeJSON(w, r, &req, maxCustomerBytes); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !req.RegistrationDate.IsSet() {
		req.RegistrationDate = core.DateOf(time.Now())
	}

	c := core.Customer{
		FirstName:        sanitizeInput(req.FirstName),
		LastName:         sanitizeInput(req.LastName),
		RegistrationDate: req.RegistrationDate,
		Phone:            sanitizeInput(req.Phone),
		Image:            req.Image,
		OpeningBalance:   req.OpeningBalance,
	}
	if err := c.Validate(); err != nil {
		writeValidationError(w, r, err)
		return
	}

	id, err := s.ledger.RecordCustomer(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	customerID, err := PathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req paymentRequest
	if err := DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeServiceError(w, r, err)
		return
	}

	at := time.Now().UTC()
	if v := strings.TrimSpace(req.TransactedAt); v != "" {
		if at, err = core.ParseTimestamp(v); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	p := core.Payment{
		CustomerID:   customerID,
		Amount:       req.Amount,
		TransactedAt: at,
		PaymentType:  sanitizeInput(req.PaymentType),
		Description:  sanitizeInput(req.Description),
	}
	if err := p.Validate(); err != nil {
		writeValidationError(w, r, err)
		return
	}

	id, err := s.ledger.RecordPayment(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleCreateCashSale(w http.ResponseWriter, r *http.Request) {
	var req cashSaleRequest
	if err := DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !req.Date.IsSet() {
		req.Date = core.DateOf(time.Now())
	}

	sale := core.CashSale{
		Date:          req.Date,
		ProductType:   sanitizeInput(req.ProductType),
		Amount:        req.Amount,
		PaymentMethod: sanitizeInput(req.PaymentMethod),
	}
	if err := sale.Validate(); err != nil {
		writeValidationError(w, r, err)
		return
	}

	id, err := s.ledger.RecordCashSale(r.Context(), sale)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	st, err := s.reporter.Statement(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementResponse(st))
}

func (s *Server) handleCustomerImage(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c, err := s.reporter.Customer(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if len(c.Image) == 0 {
		writeError(w, r, http.StatusNotFound, "customer has no image")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(c.Image))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.Image)
}
