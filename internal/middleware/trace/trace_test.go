package trace

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "debtbook/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: slog.NewTextHandler(buf, nil)})
	return NewMiddleware(logger, func(*http.Request) string { return "203.0.113.1" })
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/customers/9", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	logs := buf.String()
	if !strings.Contains(logs, "HTTP request completed") || !strings.Contains(logs, "status_code=404") {
		t.Fatalf("unexpected logs: %s", logs)
	}
}

func TestMiddlewareReusesValidRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "client-42")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "client-42" {
		t.Fatalf("request id = %q", seen)
	}
	if !strings.Contains(buf.String(), "request_id=client-42") {
		t.Fatalf("request id missing from logs: %s", buf.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id\nwith newline")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("malformed id should be replaced, got %q", seen)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Fatalf("GetRequestID = %q", id)
	}
}
