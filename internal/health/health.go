// Package health serves liveness and readiness probes for the gateway.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/circuitbreaker"
	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
	"github.com/maltehedderich/steam-api-go/internal/middleware"
	"github.com/maltehedderich/steam-api-go/internal/ratelimit"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// DefaultCheckTimeout bounds a single check.
const DefaultCheckTimeout = 2 * time.Second

// Check represents a health check result
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Response represents the health check response
type Response struct {
	Status    Status           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Checker performs one health check.
type Checker func(ctx context.Context) Check

// Manager manages health checks
type Manager struct {
	checks  map[string]Checker
	timeout time.Duration
	mu      sync.RWMutex
}

// NewManager creates a new health check manager
func NewManager() *Manager {
	return &Manager{
		checks:  make(map[string]Checker),
		timeout: DefaultCheckTimeout,
	}
}

// Register registers a health check
func (m *Manager) Register(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = checker
}

// Unregister removes a health check
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checks, name)
}

// Check runs all health checks. A degraded check degrades the overall
// status, an unhealthy one fails it.
func (m *Manager) Check(ctx context.Context) Response {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checks := make(map[string]Check, len(m.checks))
	overallStatus := StatusHealthy

	for name, checker := range m.checks {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		start := time.Now()
		check := checker(checkCtx)
		cancel()

		if check.Name == "" {
			check.Name = name
		}
		metrics.RecordHealthCheck(name, string(check.Status), time.Since(start))
		checks[name] = check

		switch {
		case check.Status == StatusUnhealthy:
			overallStatus = StatusUnhealthy
		case check.Status == StatusDegraded && overallStatus == StatusHealthy:
			overallStatus = StatusDegraded
		}
	}

	return Response{
		Status:    overallStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
}

// LivenessHandler returns a handler for liveness probes
func (m *Manager) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, r, http.StatusOK, Response{
			Status:    StatusHealthy,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessHandler answers 503 while any check is unhealthy. A degraded
// gateway is still ready since cached responses can be served.
func (m *Manager) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := m.Check(r.Context())

		status := http.StatusOK
		if response.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, r, status, response)
	}
}

// HealthHandler returns a general health check handler
func (m *Manager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, r, http.StatusOK, m.Check(r.Context()))
	}
}

func writeResponse(w http.ResponseWriter, r *http.Request, status int, response Response) {
	if err := middleware.WriteJSON(w, status, response); err != nil {
		logger.FromContext(r.Context(), "health").Error("failed to encode health response", logger.Fields{
			"error": err.Error(),
		})
	}
}

// Predefined health checkers

// PingChecker reports a backend unhealthy when ping fails.
func PingChecker(name string, ping func(ctx context.Context) error) Checker {
	return func(ctx context.Context) Check {
		if err := ping(ctx); err != nil {
			return Check{
				Name:   name,
				Status: StatusUnhealthy,
				Error:  err.Error(),
			}
		}
		return Check{
			Name:   name,
			Status: StatusHealthy,
		}
	}
}

// RateLimitChecker is degraded while Steam calls are refused after a 429.
func RateLimitChecker(status func() ratelimit.Status) Checker {
	return func(ctx context.Context) Check {
		st := status()
		if st.Limited {
			return Check{
				Name:   "steam_rate_limit",
				Status: StatusDegraded,
				Error:  fmt.Sprintf("rate limited by Steam, %d minutes left", st.MinutesLeft),
			}
		}
		return Check{
			Name:   "steam_rate_limit",
			Status: StatusHealthy,
		}
	}
}

// CircuitBreakerChecker is degraded while any upstream breaker is open.
func CircuitBreakerChecker(stats func() []circuitbreaker.Stats) Checker {
	return func(ctx context.Context) Check {
		var open []string
		for _, s := range stats() {
			if s.State == circuitbreaker.StateOpen.String() {
				open = append(open, s.Name)
			}
		}
		if len(open) > 0 {
			sort.Strings(open)
			return Check{
				Name:   "steam_circuit_breaker",
				Status: StatusDegraded,
				Error:  "circuit open for " + strings.Join(open, ", "),
			}
		}
		return Check{
			Name:   "steam_circuit_breaker",
			Status: StatusHealthy,
		}
	}
}
