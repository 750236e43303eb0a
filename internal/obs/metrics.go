// Package obs holds the Prometheus metrics shared by the server and worker.
package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "debtbook_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debtbook_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "debtbook_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	reportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "debtbook_report_duration_seconds",
			Help:    "Time spent assembling reports.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report"},
	)

	reportCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debtbook_report_cache_lookups_total",
			Help: "Report cache lookups by result.",
		},
		[]string{"result"},
	)

	entriesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debtbook_entries_recorded_total",
			Help: "Ledger entries written, by kind.",
		},
		[]string{"kind"},
	)

	mirrorAppends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "debtbook_mirror_appends_total",
			Help: "Spreadsheet mirror appends, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	initOnce sync.Once
)

// Init registers the metrics with the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			reportDuration, reportCacheLookups,
			entriesRecorded, mirrorAppends,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records in-flight count, totals and latency per canonical path.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// CanonicalPath replaces numeric path segments with ":id" to keep label
// cardinality bounded. Query strings are dropped.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// ObserveReport records how long a report took since start.
func ObserveReport(report string, start time.Time) {
	reportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

func CacheLookup(hit bool) {
	if hit {
		reportCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	reportCacheLookups.WithLabelValues("miss").Inc()
}

func EntryRecorded(kind string) {
	entriesRecorded.WithLabelValues(kind).Inc()
}

func MirrorAppend(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mirrorAppends.WithLabelValues(kind, result).Inc()
}
