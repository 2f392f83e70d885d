package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Provider metrics
	ProviderInvocationsTotal  *prometheus.CounterVec
	ProviderInvocationSeconds *prometheus.HistogramVec
	ProviderTokensTotal       *prometheus.CounterVec
	ProviderCostUSDTotal      *prometheus.CounterVec

	// Business metrics
	FilesUploadedTotal  *prometheus.CounterVec
	ChatTurnsTotal      *prometheus.CounterVec
	RateLimitedRequests prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aichat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aichat_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aichat_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aichat_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		ProviderInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aichat_provider_invocations_total",
				Help: "Total number of LLM provider invocations",
			},
			[]string{"provider", "model", "status"},
		),
		ProviderInvocationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aichat_provider_invocation_duration_seconds",
				Help:    "LLM provider invocation duration in seconds",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),
		ProviderTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aichat_provider_tokens_total",
				Help: "Total tokens reported by providers",
			},
			[]string{"provider", "model", "direction"},
		),
		ProviderCostUSDTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aichat_provider_cost_usd_total",
				Help: "Accumulated provider cost in USD",
			},
			[]string{"provider", "model"},
		),
		FilesUploadedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aichat_files_uploaded_total",
				Help: "Total number of uploaded files",
			},
			[]string{"file_type", "status"},
		),
		ChatTurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aichat_chat_turns_total",
				Help: "Total number of chat turns",
			},
			[]string{"model", "status"},
		),
		RateLimitedRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aichat_rate_limited_requests_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.ProviderInvocationsTotal,
		m.ProviderInvocationSeconds,
		m.ProviderTokensTotal,
		m.ProviderCostUSDTotal,
		m.FilesUploadedTotal,
		m.ChatTurnsTotal,
		m.RateLimitedRequests,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
