package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ssargent/slotdb/pkg/store"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Record operation metrics
	recordOperationsTotal   *prometheus.CounterVec
	recordOperationDuration *prometheus.HistogramVec
	recordSlots             *prometheus.GaugeVec

	// Lock metrics
	lockWaitDuration prometheus.Histogram
	lockRejections   *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	sessionsOpen prometheus.Gauge

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		// HTTP request metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotdb_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slotdb_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slotdb_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		// Record operation metrics
		recordOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotdb_record_operations_total",
				Help: "Total number of record operations",
			},
			[]string{"operation", "status"},
		),

		recordOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slotdb_record_operation_duration_seconds",
				Help:    "Record operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		recordSlots: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slotdb_record_slots",
				Help: "Number of record slots by state",
			},
			[]string{"state"},
		),

		lockWaitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slotdb_lock_wait_seconds",
				Help:    "Time spent acquiring record locks",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
		),

		lockRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotdb_lock_rejections_total",
				Help: "Lock and write requests refused, by reason",
			},
			[]string{"reason"},
		),

		// Authentication metrics
		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotdb_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		sessionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "slotdb_sessions_open",
				Help: "Number of open client sessions",
			},
		),

		// Health check metrics
		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slotdb_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordOperation records a record operation and, for refused requests,
// the reason it was refused
func (m *Metrics) RecordOperation(operation string, err error, duration time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusError
		if _, code := classify(err); code == "stale" || code == "not_locked" {
			m.lockRejections.WithLabelValues(code).Inc()
		}
	}

	m.recordOperationsTotal.WithLabelValues(operation, status).Inc()
	m.recordOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLockWait records how long a lock request took
func (m *Metrics) RecordLockWait(duration time.Duration) {
	m.lockWaitDuration.Observe(duration.Seconds())
}

// UpdateTableStats updates the slot gauges
func (m *Metrics) UpdateTableStats(stats store.TableStats) {
	m.recordSlots.WithLabelValues("live").Set(float64(stats.Live))
	m.recordSlots.WithLabelValues("deleted").Set(float64(stats.Deleted))
	m.recordSlots.WithLabelValues("locked").Set(float64(stats.Locked))
	m.recordSlots.WithLabelValues("free").Set(float64(stats.FreeSlots))
}

// SetSessions updates the open session gauge
func (m *Metrics) SetSessions(open int) {
	m.sessionsOpen.Set(float64(open))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Record request in flight
		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Create response writer wrapper to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		duration := time.Since(start)
		m.RecordHTTPRequest(method, endpoint, rw.statusCode, duration)
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
