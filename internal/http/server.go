package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"debtbook/internal/cache"
	"debtbook/internal/ledger"
	applog "debtbook/internal/log"
	"debtbook/internal/middleware/ratelimit"
	"debtbook/internal/middleware/security"
	"debtbook/internal/middleware/trace"
	"debtbook/internal/obs"
	"debtbook/internal/services"
)

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	ReportCacheTTL     time.Duration
	ReportCacheSize    int
	// Ready is polled by /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *applog.Logger
}

type Server struct {
	http.Server
	ledger   *services.LedgerService
	reporter *ledger.Reporter
	ready    func(ctx context.Context) error

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	// Encoded report bodies, dropped on every ledger write
	reportCache  *cache.Versioned[[]byte]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// Report caching stays coherent because every ledger write invalidates it.
func NewServer(addr string, svc *services.LedgerService, reporter *ledger.Reporter, opts Options) *Server {
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 128
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:   svc,
		reporter: reporter,
		ready:    opts.Ready,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			PerSecond: opts.RateLimitPerSecond,
			Burst:     opts.RateLimitBurst,
		}),
		detector:     security.NewDetector(),
		reportCache:  cache.NewVersioned[[]byte](opts.ReportCacheSize, opts.ReportCacheTTL),
		cacheManager: cache.NewManager(),
	}
	svc.OnWrite(s.reportCache.Invalidate)
	s.cacheManager.Register(s.reportCache)
	s.cacheManager.StartCleanup(context.Background(), opts.ReportCacheTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", obs.Handler())

	mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	mux.HandleFunc("POST /api/customers", s.limited(s.handleCreateCustomer))
	mux.HandleFunc("GET /api/customers/{id}", s.handleStatement)
	mux.HandleFunc("GET /api/customers/{id}/image", s.handleCustomerImage)
	mux.HandleFunc("POST /api/customers/{id}/payments", s.limited(s.handleCreatePayment))

	reports := applog.ComponentMiddleware(applog.ComponentReport)
	mux.Handle("GET /api/cash-sales", reports(http.HandlerFunc(s.handleCashSalesSummary)))
	mux.HandleFunc("POST /api/cash-sales", s.limited(s.handleCreateCashSale))

	mux.Handle("GET /api/reports/cash-book", reports(http.HandlerFunc(s.handleCashBook)))
	mux.Handle("GET /api/reports/analysis", reports(http.HandlerFunc(s.handleAnalysis)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	headers := security.NewHeadersMiddleware(security.APIHeadersConfig())
	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	var h http.Handler = mux
	h = s.withDetection(h)
	h = headers.Middleware(h)
	h = tracer.Middleware(h)
	h = obs.Instrument(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// limited rejects clients that exceed the write rate.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := s.detector.ExtractClientIP(r)
		if !s.rateLimiter.Allow(clientIP) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(s.rateLimiter.RetryAfter()))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// withDetection logs scanner-like requests; they are still served.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe serves until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
