// Package circuitbreaker stops calls to an upstream host that keeps
// failing and lets a few probe calls through once a cool-down elapses.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed means requests are allowed
	StateClosed State = iota
	// StateOpen means requests are blocked
	StateOpen
	// StateHalfOpen means limited requests are allowed to test recovery
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config contains circuit breaker configuration
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold" env:"FAILURE_THRESHOLD"`
	// SuccessThreshold is the number of consecutive successes in half-open before closing
	SuccessThreshold int `yaml:"success_threshold" json:"success_threshold" env:"SUCCESS_THRESHOLD"`
	// Timeout is how long to wait in open state before trying half-open
	Timeout time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	// MaxRequests is the maximum number of requests allowed in half-open state
	MaxRequests int `yaml:"max_requests" json:"max_requests" env:"MAX_REQUESTS"`
}

// DefaultConfig returns default circuit breaker configuration
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		MaxRequests:      3,
	}
}

// Classifier reports whether err should count against the breaker.
// Errors it rejects are returned to the caller but treated as successes.
type Classifier func(err error) bool

// AnyError counts every non-nil error as a failure.
func AnyError(err error) bool {
	return err != nil
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	name             string
	config           *Config
	clock            clock.Clock
	isFailure        Classifier
	state            State
	failures         int
	successes        int
	lastFailureTime  time.Time
	lastStateChange  time.Time
	halfOpenRequests int
	mu               sync.RWMutex
	logger           *logger.ComponentLogger
}

// Option customizes a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock sets the clock used for the open-state timeout.
func WithClock(c clock.Clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = clock.OrSystem(c) }
}

// WithClassifier sets which errors count as failures.
func WithClassifier(fn Classifier) Option {
	return func(cb *CircuitBreaker) {
		if fn != nil {
			cb.isFailure = fn
		}
	}
}

// New creates a new circuit breaker
func New(name string, config *Config, opts ...Option) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}

	cb := &CircuitBreaker{
		name:      name,
		config:    config,
		clock:     clock.System{},
		isFailure: AnyError,
		state:     StateClosed,
		logger:    logger.Get().WithComponent("circuitbreaker"),
	}
	for _, opt := range opts {
		opt(cb)
	}
	cb.lastStateChange = cb.clock.Now()
	metrics.SetCircuitBreakerState(name, int(StateClosed))

	return cb
}

// Execute runs fn unless the circuit is open, in which case it returns
// ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn()
	cb.afterRequest(err)

	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if cb.clock.Now().Sub(cb.lastStateChange) >= cb.config.Timeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenRequests = 1
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.config.MaxRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenRequests++
		return nil

	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.isFailure(err) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.successes = 0
	cb.lastFailureTime = cb.clock.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}

	case StateHalfOpen:
		// Any failure in half-open goes back to open
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successes++

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		if cb.successes >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
			cb.failures = 0
			cb.halfOpenRequests = 0
		}
	}
}

// setState must be called with cb.mu held.
func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = cb.clock.Now()

	metrics.SetCircuitBreakerState(cb.name, int(newState))
	metrics.RecordCircuitBreakerTransition(cb.name, oldState.String(), newState.String())

	cb.logger.Info("circuit breaker state changed", logger.Fields{
		"name":      cb.name,
		"old_state": oldState.String(),
		"new_state": newState.String(),
		"failures":  cb.failures,
		"successes": cb.successes,
	})
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Stats contains circuit breaker statistics
type Stats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	Successes       int       `json:"successes"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
	LastStateChange time.Time `json:"last_state_change"`
}

// GetStats returns current statistics
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return Stats{
		Name:            cb.name,
		State:           cb.state.String(),
		Failures:        cb.failures,
		Successes:       cb.successes,
		LastFailureTime: cb.lastFailureTime,
		LastStateChange: cb.lastStateChange,
	}
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenRequests = 0

	cb.logger.Info("circuit breaker reset", logger.Fields{
		"name": cb.name,
	})
}

// Manager hands out one circuit breaker per upstream host.
type Manager struct {
	breakers map[string]*CircuitBreaker
	config   *Config
	opts     []Option
	mu       sync.RWMutex
	logger   *logger.ComponentLogger
}

// NewManager creates a manager whose breakers share config and opts.
func NewManager(config *Config, opts ...Option) *Manager {
	return &Manager{
		breakers: make(map[string]*CircuitBreaker),
		config:   config,
		opts:     opts,
		logger:   logger.Get().WithComponent("circuitbreaker.manager"),
	}
}

// Get gets or creates the circuit breaker for name.
func (m *Manager) Get(name string) *CircuitBreaker {
	m.mu.RLock()
	cb, exists := m.breakers[name]
	m.mu.RUnlock()

	if exists {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cb, exists := m.breakers[name]; exists {
		return cb
	}

	cb = New(name, m.config, m.opts...)
	m.breakers[name] = cb

	m.logger.Debug("circuit breaker created", logger.Fields{
		"name": name,
	})

	return cb
}

// GetStats returns statistics for all circuit breakers
func (m *Manager) GetStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]Stats, 0, len(m.breakers))
	for _, cb := range m.breakers {
		stats = append(stats, cb.GetStats())
	}

	return stats
}

// Reset resets a specific circuit breaker
func (m *Manager) Reset(name string) error {
	m.mu.RLock()
	cb, exists := m.breakers[name]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("circuit breaker not found: %s", name)
	}

	cb.Reset()
	return nil
}

// ResetAll resets all circuit breakers
func (m *Manager) ResetAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, cb := range m.breakers {
		cb.Reset()
	}
}
