package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // operation can be "create", "access", "update", etc.
	)

	// Vocabulary operation counter
	VocabularyOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_vocabulary_operations_total",
			Help: "Total number of vocabulary operations",
		},
		[]string{"operation"},
	)

	// Entity operation counter
	EntityOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_entity_operations_total",
			Help: "Total number of entity operations",
		},
		[]string{"operation"},
	)

	// Edge operation counter
	EdgeOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_edge_operations_total",
			Help: "Total number of edge operations",
		},
		[]string{"operation"},
	)

	// Observation operation counter
	ObservationOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_observation_operations_total",
			Help: "Total number of observation operations",
		},
		[]string{"operation"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "missing_token", "invalid_token", etc.
	)

	RequestErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_request_errors_total",
			Help: "Total number of request errors by category",
		},
		[]string{"category"}, // "validation", "not_found", "forbidden", "state", "database"
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graph_info",
			Help: "Information about the graph service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(VocabularyOperationCounter)
	prometheus.MustRegister(EntityOperationCounter)
	prometheus.MustRegister(EdgeOperationCounter)
	prometheus.MustRegister(ObservationOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(RequestErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordRequestError records a request error by category
func RecordRequestError(category string) {
	RequestErrorCounter.With(prometheus.Labels{"category": category}).Inc()
}

// RecordTenantOperation records a tenant operation
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordVocabularyOperation records a vocabulary operation
func RecordVocabularyOperation(operation string) {
	VocabularyOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordEntityOperation records an entity operation
func RecordEntityOperation(operation string) {
	EntityOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordEdgeOperation records an edge operation
func RecordEdgeOperation(operation string) {
	EdgeOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordObservationOperation records an observation operation
func RecordObservationOperation(operation string) {
	ObservationOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}
