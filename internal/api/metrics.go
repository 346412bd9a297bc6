package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tindralencia/barrio-match/internal/matcher"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "barrio",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barrio",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	matchNeighborhoods = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "barrio",
			Name:      "match_neighborhoods",
			Help:      "Number of neighborhoods returned per match",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	matchWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barrio",
			Name:      "match_warnings_total",
			Help:      "Warnings attached to match results, by kind",
		},
		[]string{"kind"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barrio",
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, matchNeighborhoods, matchWarningsTotal, rateLimitedTotal)
}

// observeMatch records result-level metrics.
func observeMatch(res *matcher.MatchResult) {
	matchNeighborhoods.Observe(float64(len(res.Neighborhoods)))
	for _, w := range res.Warnings {
		matchWarningsTotal.WithLabelValues(string(w.Kind)).Inc()
	}
}

// metricsMiddleware records HTTP request duration and count per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		status := strconv.Itoa(ww.status)

		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
