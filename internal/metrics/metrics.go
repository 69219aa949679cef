package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LoginAttempts counts login form submissions by outcome (success, invalid, error).
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Registrations counts registration submissions by outcome (success, invalid, duplicate, error).
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registrations_total",
			Help: "Total number of registrations by outcome",
		},
		[]string{"outcome"},
	)

	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_swept_total",
			Help: "Total number of expired sessions removed by the sweeper",
		},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, LoginAttempts, Registrations, SessionsCreated, SessionsSwept)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /users/123 -> /users/{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

func IncLoginAttempt(outcome string) {
	LoginAttempts.WithLabelValues(outcome).Inc()
}

func IncRegistration(outcome string) {
	Registrations.WithLabelValues(outcome).Inc()
}

func IncSessionsCreated() {
	SessionsCreated.Inc()
}

// AddSessionsSwept adds n removed sessions; non-positive n is ignored.
func AddSessionsSwept(n int) {
	if n > 0 {
		SessionsSwept.Add(float64(n))
	}
}
