// Package http serves the ledger's JSON API.
//
// This file holds the helpers that turn path values, query strings and
// request bodies into domain values.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"debtbook/internal/core"
)

// errBadRequest marks malformed input; handlers answer 400.
var errBadRequest = errors.New("bad request")

const (
	maxBodyBytes     = 64 << 10
	maxCustomerBytes = 6 << 20
)

// ParseDateRange reads start_date and end_date (YYYY-MM-DD). Either may be
// omitted; the reporter fills the missing side.
func ParseDateRange(query url.Values) (core.DateRange, error) {
	var rng core.DateRange
	for _, p := range []struct {
		key string
		dst *core.Date
	}{{"start_date", &rng.Start}, {"end_date", &rng.End}} {
		v := strings.TrimSpace(query.Get(p.key))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadRequest, p.key)
		}
		*p.dst = d
	}
	return rng, nil
}

// ParseYear reads an optional year parameter; ok is false when absent.
func ParseYear(query url.Values) (year int, ok bool, err error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return 0, false, nil
	}
	year, err = strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%w: year must be a number", errBadRequest)
	}
	return year, true, nil
}

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// DecodeJSON reads one JSON object of at most limit bytes into dst.
// Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		case errors.Is(err, core.ErrInvalidAmount):
			return fmt.Errorf("%w: invalid amount", errBadRequest)
		default:
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
