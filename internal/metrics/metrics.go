package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Morel routing engine.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Recommendation metrics.
	RecommendationsTotal   *prometheus.CounterVec
	RecommendationDuration prometheus.Histogram

	// Usage accounting metrics.
	EventsRecordedTotal  *prometheus.CounterVec
	DuplicateEventsTotal prometheus.Counter
	CostRecordedTotal    *prometheus.CounterVec
	ExportsTotal         *prometheus.CounterVec

	// Catalog metrics.
	CatalogModels         prometheus.Gauge
	CatalogRefreshesTotal *prometheus.CounterVec

	// Rate limiting metrics.
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "morel_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		RecommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_recommendations_total",
			Help: "Total number of model recommendations served.",
		}, []string{"task_type", "complexity"}),

		RecommendationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "morel_recommendation_duration_seconds",
			Help:    "Duration of prompt analysis and scoring in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),

		EventsRecordedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_usage_events_total",
			Help: "Total number of usage events recorded.",
		}, []string{"model_id", "module"}),

		DuplicateEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "morel_usage_duplicate_events_total",
			Help: "Total number of usage events rejected as duplicates.",
		}),

		CostRecordedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_usage_cost_dollars_total",
			Help: "Cumulative recorded inference cost in dollars.",
		}, []string{"model_id"}),

		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_usage_exports_total",
			Help: "Total number of usage export downloads.",
		}, []string{"format"}),

		CatalogModels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "morel_catalog_models",
			Help: "Number of models in the active catalog snapshot.",
		}),

		CatalogRefreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_catalog_refreshes_total",
			Help: "Total number of catalog refresh attempts.",
		}, []string{"status"}),

		RateLimitRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}, []string{"scope"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "morel_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"auth_type"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "morel_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	// Register all metrics.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RecommendationsTotal,
		m.RecommendationDuration,
		m.EventsRecordedTotal,
		m.DuplicateEventsTotal,
		m.CostRecordedTotal,
		m.ExportsTotal,
		m.CatalogModels,
		m.CatalogRefreshesTotal,
		m.RateLimitRejectionsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.ServerStartTime,
	)

	// Set server start time.
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// IncHTTPRequest increments the HTTP request counter.
func (m *Metrics) IncHTTPRequest(method, pathPattern string, statusCode int) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
}

// ObserveHTTPDuration records the request duration for a route.
func (m *Metrics) ObserveHTTPDuration(method, pathPattern string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncRecommendation increments the recommendation counter.
func (m *Metrics) IncRecommendation(taskType, complexity string) {
	m.RecommendationsTotal.WithLabelValues(taskType, complexity).Inc()
}

// ObserveRecommendationDuration records analysis and scoring latency.
func (m *Metrics) ObserveRecommendationDuration(seconds float64) {
	m.RecommendationDuration.Observe(seconds)
}

// IncEventRecorded increments the usage event counter and adds the event cost.
func (m *Metrics) IncEventRecorded(modelID, module string, cost float64) {
	m.EventsRecordedTotal.WithLabelValues(modelID, module).Inc()
	m.CostRecordedTotal.WithLabelValues(modelID).Add(cost)
}

// IncDuplicateEvent increments the duplicate event counter.
func (m *Metrics) IncDuplicateEvent() {
	m.DuplicateEventsTotal.Inc()
}

// IncExport increments the export counter for the given format.
func (m *Metrics) IncExport(format string) {
	m.ExportsTotal.WithLabelValues(format).Inc()
}

// SetCatalogModels records the active catalog size.
func (m *Metrics) SetCatalogModels(n int) {
	m.CatalogModels.Set(float64(n))
}

// IncCatalogRefresh increments the catalog refresh counter.
func (m *Metrics) IncCatalogRefresh(status string) {
	m.CatalogRefreshesTotal.WithLabelValues(status).Inc()
}

// IncRateLimitRejection increments the rate limit rejection counter.
func (m *Metrics) IncRateLimitRejection(scope string) {
	m.RateLimitRejectionsTotal.WithLabelValues(scope).Inc()
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncAuthSuccess increments the auth success counter for the given auth type.
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}
