package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects prometheus counters for requests and workflow outcomes.
// All methods are safe on a nil receiver.
type Metrics struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	signIns         *prometheus.CounterVec
	propertyReviews *prometheus.CounterVec
	taskStatus      *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "property_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "property_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "property_http_errors_total",
			Help: "HTTP error responses by route, method and error code.",
		}, []string{"route", "method", "code"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "property_sign_in_total",
			Help: "Role sign-in attempts by role and outcome.",
		}, []string{"role", "outcome"}),
		propertyReviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "property_reviews_total",
			Help: "Property moderation decisions by outcome.",
		}, []string{"outcome"}),
		taskStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "property_task_status_changes_total",
			Help: "Staff task status changes by new status.",
		}, []string{"status"}),
	}

	reg.MustRegister(m.requests, m.latency, m.errors, m.signIns, m.propertyReviews, m.taskStatus)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordSignIn counts a role sign-in attempt.
func (m *Metrics) RecordSignIn(role, outcome string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(role, outcome).Inc()
}

// RecordPropertyReview counts an approve or reject decision.
func (m *Metrics) RecordPropertyReview(outcome string) {
	if m == nil {
		return
	}
	m.propertyReviews.WithLabelValues(outcome).Inc()
}

// RecordTaskStatus counts a task status change.
func (m *Metrics) RecordTaskStatus(status string) {
	if m == nil {
		return
	}
	m.taskStatus.WithLabelValues(status).Inc()
}
