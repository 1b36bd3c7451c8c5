// Package metrics holds the Prometheus collectors for the gateway's
// inbound HTTP API and its outbound Steam Web API traffic.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "steamgw"

var (
	// Inbound HTTP API
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status_code"},
	)

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "route", "status_code"},
	)

	httpActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Number of currently active HTTP requests",
		},
	)

	// Outbound Steam Web API
	steamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "steam",
			Name:      "requests_total",
			Help:      "Total number of Steam Web API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // ok, throttled, status, transport, invalid_json, circuit_open
	)

	steamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "steam",
			Name:      "request_duration_seconds",
			Help:      "Steam Web API call duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	steamCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of response cache lookups by result",
		},
		[]string{"result"}, // hit, miss, corrupt, error
	)

	steamRateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Total number of calls refused because of Steam rate limiting",
		},
		[]string{"reason"}, // gate, throttled
	)

	steamRateLimited = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "limited",
			Help:      "Whether the client currently considers itself rate limited (0 or 1)",
		},
	)

	steamRequestsInWindow = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "window_requests",
			Help:      "Steam Web API calls made in the current 24h window",
		},
	)

	// Inbound API protection
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Total number of bearer token checks by result",
		},
		[]string{"result"}, // success, missing_token, invalid_token, expired_token, insufficient_scope
	)

	clientLimitChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client_limit",
			Name:      "checks_total",
			Help:      "Total number of per-caller rate limit checks by result",
		},
		[]string{"result"}, // allowed, rejected, skipped, error
	)

	// Circuit Breaker
	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuitbreaker",
			Name:      "state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	circuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuitbreaker",
			Name:      "transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Health Checks
	healthCheckTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "checks_total",
			Help:      "Total number of health checks performed",
		},
		[]string{"check_name", "status"},
	)

	healthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "check_duration_seconds",
			Help:      "Duration of health checks in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2},
		},
		[]string{"check_name"},
	)

	once sync.Once
)

// Init registers all collectors with the default Prometheus registry.
// Collectors record values whether or not Init was called, so library
// users that never expose /metrics pay nothing beyond the counters.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			httpResponseSize,
			httpActiveRequests,

			steamRequestsTotal,
			steamRequestDuration,
			steamCacheLookupsTotal,
			steamRateLimitRejectionsTotal,
			steamRateLimited,
			steamRequestsInWindow,

			authAttemptsTotal,
			clientLimitChecksTotal,

			circuitBreakerState,
			circuitBreakerTransitionsTotal,

			healthCheckTotal,
			healthCheckDuration,
		)
	})
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTP Metrics functions
func RecordHTTPRequest(method, route, statusCode string, duration time.Duration, responseSize int) {
	httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration.Seconds())
	httpResponseSize.WithLabelValues(method, route, statusCode).Observe(float64(responseSize))
}

func IncActiveRequests() {
	httpActiveRequests.Inc()
}

func DecActiveRequests() {
	httpActiveRequests.Dec()
}

// Steam Metrics functions
func RecordSteamRequest(endpoint, outcome string, duration time.Duration) {
	steamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	steamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func RecordCacheLookup(result string) {
	steamCacheLookupsTotal.WithLabelValues(result).Inc()
}

func RecordRateLimitRejection(reason string) {
	steamRateLimitRejectionsTotal.WithLabelValues(reason).Inc()
}

func SetRateLimited(limited bool) {
	if limited {
		steamRateLimited.Set(1)
	} else {
		steamRateLimited.Set(0)
	}
}

func SetWindowRequests(count int64) {
	steamRequestsInWindow.Set(float64(count))
}

func RecordAuthAttempt(result string) {
	authAttemptsTotal.WithLabelValues(result).Inc()
}

func RecordClientLimitCheck(result string) {
	clientLimitChecksTotal.WithLabelValues(result).Inc()
}

// Circuit Breaker Metrics functions
func SetCircuitBreakerState(name string, state int) {
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordCircuitBreakerTransition(name, fromState, toState string) {
	circuitBreakerTransitionsTotal.WithLabelValues(name, fromState, toState).Inc()
}

// Health Check Metrics functions
func RecordHealthCheck(checkName, status string, duration time.Duration) {
	healthCheckTotal.WithLabelValues(checkName, status).Inc()
	healthCheckDuration.WithLabelValues(checkName).Observe(duration.Seconds())
}
