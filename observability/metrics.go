package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// API key metrics
	KeysIssuedTotal       prometheus.Counter
	KeysRevokedTotal      prometheus.Counter
	KeyValidationsTotal   *prometheus.CounterVec
	KeyValidationDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// API key metrics
		KeysIssuedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "keygate",
				Subsystem: "keys",
				Name:      "issued_total",
				Help:      "Total number of API keys issued",
			},
		),
		KeysRevokedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "keygate",
				Subsystem: "keys",
				Name:      "revoked_total",
				Help:      "Total number of API keys revoked",
			},
		),
		// The result label carries the differentiated rejection reason.
		// It is internal telemetry only; callers always see one opaque
		// failure signal.
		KeyValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keygate",
				Subsystem: "keys",
				Name:      "validations_total",
				Help:      "Total number of API key validation attempts by result",
			},
			[]string{"result"},
		),
		KeyValidationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "keygate",
				Subsystem: "keys",
				Name:      "validation_duration_seconds",
				Help:      "Duration of API key validation in seconds",
				Buckets:   defaultBuckets,
			},
		),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "keygate",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keygate",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keygate",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "keygate",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "keygate",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "keygate",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordKeyIssued records an API key issuance
func (m *Metrics) RecordKeyIssued() {
	m.KeysIssuedTotal.Inc()
}

// RecordKeyRevoked records an API key revocation
func (m *Metrics) RecordKeyRevoked() {
	m.KeysRevokedTotal.Inc()
}

// RecordKeyValidation records a validation attempt and its duration
func (m *Metrics) RecordKeyValidation(result string, duration time.Duration) {
	m.KeyValidationsTotal.WithLabelValues(result).Inc()
	m.KeyValidationDuration.Observe(duration.Seconds())
}

// RecordDBQuery records a database query duration
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// Timer is a helper for timing operations
type Timer struct {
	metrics *Metrics
	start   time.Time
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{metrics: m, start: time.Now()}
}

// ObserveDB records the elapsed time as a database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// ObserveValidation records the elapsed time as a key validation
func (t *Timer) ObserveValidation(result string) {
	t.metrics.RecordKeyValidation(result, time.Since(t.start))
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
