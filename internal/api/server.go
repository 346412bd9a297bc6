// Package api exposes the matcher over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tindralencia/barrio-match/internal/demand"
	"github.com/tindralencia/barrio-match/internal/listing"
	"github.com/tindralencia/barrio-match/internal/matcher"
)

// Matcher runs one match. *matcher.Service satisfies it.
type Matcher interface {
	Match(ctx context.Context, req matcher.FilterRequest) (*matcher.MatchResult, error)
}

// Options configures a Server.
type Options struct {
	// RateLimit is the global requests-per-second budget. Zero disables limiting.
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	// Demand backs GET /v1/demand/summary. Nil disables the route.
	Demand demand.Recorder
	// Listings backs /v1/listings and /v1/yield. Nil disables the routes.
	Listings listing.Store
}

// Server holds the HTTP handlers.
type Server struct {
	matcher  Matcher
	demand   demand.Recorder
	listings listing.Store
	limiter  *rate.Limiter
	origins  []string
}

// NewServer creates a Server.
func NewServer(m Matcher, opts Options) *Server {
	s := &Server{matcher: m, demand: opts.Demand, listings: opts.Listings, origins: opts.CORSOrigins}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/match", s.handleMatch)
		r.Get("/price-categories", s.handlePriceCategories)
		if s.demand != nil {
			r.Get("/demand/summary", s.handleDemandSummary)
		}
		if s.listings != nil {
			r.Get("/listings", s.handleListListings)
			r.Post("/listings", s.handleAddListing)
			r.Get("/yield", s.handleYield)
		}
	})
	return r
}

// rateLimit rejects requests beyond the global token bucket with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			rateLimitedTotal.Inc()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
