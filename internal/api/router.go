package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morel-ai/morel/internal/auth"
	"github.com/morel-ai/morel/internal/catalog"
	"github.com/morel-ai/morel/internal/metrics"
	"github.com/morel-ai/morel/internal/ratelimit"
	"github.com/morel-ai/morel/internal/recommend"
	"github.com/morel-ai/morel/internal/report"
	"github.com/morel-ai/morel/internal/ui"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Catalog    *catalog.Catalog
	ModelStore modelSource
	Scorer     *recommend.Scorer
	Recorder   eventRecorder
	Aggregator *report.Aggregator
	Limiter    *ratelimit.Limiter
	Metrics    *metrics.Metrics

	// DefaultTopN is the recommendation list length when the request does
	// not ask for one; zero falls back to the package default.
	DefaultTopN int

	// AdminKeyHash is the bcrypt hash guarding /api/v1/admin; empty disables
	// the admin surface.
	AdminKeyHash   string
	AllowedOrigins []string

	// DBPing reports database health; nil means no database is wired.
	DBPing func(ctx context.Context) error
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(httpMetricsMiddleware(deps.Metrics))
	}

	// Handlers. Metrics interfaces stay nil when no collector is wired.
	var (
		recMetrics    recommendMetrics
		usgMetrics    usageMetrics
		catMetrics    catalogMetrics
		onRateReject  func()
		onAuthSuccess func()
		onAuthFailure func()
	)
	if deps.Metrics != nil {
		recMetrics = deps.Metrics
		usgMetrics = deps.Metrics
		catMetrics = deps.Metrics
		onRateReject = func() { deps.Metrics.IncRateLimitRejection("api") }
		onAuthSuccess = func() { deps.Metrics.IncAuthSuccess("admin_key") }
		onAuthFailure = func() { deps.Metrics.IncAuthFailure("admin_key") }
	}

	recommender := newRecommendHandler(deps.Catalog, deps.Scorer, recMetrics, deps.DefaultTopN)
	usage := newUsageHandler(deps.Recorder, deps.Aggregator, usgMetrics)
	models := newModelsHandler(deps.Catalog, deps.ModelStore, catMetrics)

	// Usage dashboard.
	r.Get("/", ui.Handler().ServeHTTP)

	// Health check.
	r.Get("/health", healthHandler(deps.DBPing))

	// Well-known manifest.
	r.Get("/.well-known/morel.json", WellKnownHandler)

	// Prometheus metrics and live JSON summary.
	if deps.Metrics != nil {
		r.Get("/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP)
		r.Get("/metrics/summary", deps.Metrics.Handler())
	}

	// Rate-limited API routes.
	r.Route("/api/v1", func(ar chi.Router) {
		if deps.Limiter != nil {
			ar.Use(ratelimitMiddleware(deps.Limiter, onRateReject))
		}

		ar.Get("/models", models.ListModels)
		ar.Get("/models/{id}", models.GetModel)

		ar.Post("/recommend", recommender.Recommend)

		ar.Post("/usage", usage.RecordEvent)
		ar.Get("/usage/summary", usage.GetSummary)
		ar.Get("/usage/modules", usage.GetModuleBreakdown)
		ar.Get("/usage/researchers", usage.GetResearcherBreakdown)
		ar.Get("/usage/export", usage.Export)
	})

	// Admin routes (require admin key).
	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Use(auth.AdminAuthMiddleware(deps.AdminKeyHash, onAuthSuccess, onAuthFailure))

		ar.Post("/models", models.UpsertModel)
		ar.Post("/catalog/refresh", models.RefreshCatalog)
	})

	return r
}

func ratelimitMiddleware(l *ratelimit.Limiter, onReject func()) func(http.Handler) http.Handler {
	if onReject != nil {
		return ratelimit.Middleware(l, onReject)
	}
	return ratelimit.Middleware(l)
}

// healthHandler reports service and database health.
func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "connected"
		overall := "ok"
		status := http.StatusOK
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				dbStatus = "unreachable"
				overall = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, status, map[string]string{
			"status":   overall,
			"database": dbStatus,
		})
	}
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// httpMetricsMiddleware records request counts and latencies per route pattern.
func httpMetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.IncHTTPRequest(r.Method, pattern, ww.Status())
			m.ObserveHTTPDuration(r.Method, pattern, time.Since(start).Seconds())
		})
	}
}
