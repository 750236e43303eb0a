package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	applog "debtbook/internal/log"
	"debtbook/internal/obs"
)

// cachedReport serves name/key from the report cache or builds, encodes and
// stores it. Builds that overlap a write are served but not stored. attrs
// are added to the report log line.
func (s *Server) cachedReport(w http.ResponseWriter, r *http.Request, name, key string, build func(ctx context.Context) (any, error), attrs ...any) {
	start := time.Now()
	gen := s.reportCache.Generation()

	body, hit := s.reportCache.Get(gen, key)
	obs.CacheLookup(hit)
	if !hit {
		v, err := build(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		body, err = json.Marshal(v)
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("encode %s report: %w", name, err))
			return
		}
		body = append(body, '\n')
		s.reportCache.Set(gen, key, body)
	}

	obs.ObserveReport(name, start)
	applog.NewStructuredLogger(applog.FromContext(r.Context()).With(attrs...)).
		LogReport(r.Context(), name, hit, time.Since(start).Milliseconds())
	writeRawJSON(w, http.StatusOK, body)
}

// handleCashBook serves revenue for ?start_date&end_date plus current debts.
func (s *Server) handleCashBook(w http.ResponseWriter, r *http.Request) {
	rng, err := ParseDateRange(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resolved, err := rng.Resolve()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.cachedReport(w, r, "cash_book", "cash-book:"+resolved.String(), func(ctx context.Context) (any, error) {
		return s.reporter.CashBook(ctx, resolved)
	}, applog.FieldRange, resolved.String())
}

// handleAnalysis serves monthly series for every report year, or for
// ?year alone.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	year, ok, err := ParseYear(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ok {
		s.cachedReport(w, r, "year", "analysis:"+strconv.Itoa(year), func(ctx context.Context) (any, error) {
			return s.reporter.YearReport(ctx, year)
		}, applog.FieldYear, year)
		return
	}
	s.cachedReport(w, r, "analysis", "analysis", func(ctx context.Context) (any, error) {
		return s.reporter.Analysis(ctx)
	})
}

func (s *Server) handleCashSalesSummary(w http.ResponseWriter, r *http.Request) {
	s.cachedReport(w, r, "cash_sales", "cash-sales", func(ctx context.Context) (any, error) {
		return s.reporter.CashSalesSummary(ctx)
	})
}
