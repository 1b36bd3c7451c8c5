// Package ratelimit holds the client-side throttling state of a Steam
// client: the backoff flag raised by a 429 response, the rolling 24 hour
// request counter, and an optional token bucket used to pace requests.
package ratelimit

import (
	"sync"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
)

const (
	// DefaultRetryWindow is how long the client refuses to call Steam
	// after a 429 response.
	DefaultRetryWindow = 60 * time.Minute

	// CounterWindow is the length of the request counting window.
	CounterWindow = 24 * time.Hour
)

// Status is a snapshot of the backoff flag.
type Status struct {
	Limited      bool      `json:"limited"`
	LimitedAt    time.Time `json:"limited_at"`
	MinutesSince int       `json:"minutes_since"`
	MinutesLeft  int       `json:"minutes_left"`
}

// RequestCount is a snapshot of the request counter.
type RequestCount struct {
	Count       int64     `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// State is the mutable throttling state of one client. A single State can
// be handed to several clients so they back off together. All methods are
// safe for concurrent use.
type State struct {
	mu    sync.Mutex
	clock clock.Clock

	limited     bool
	limitedAt   time.Time
	retryWindow time.Duration

	count       int64
	windowStart time.Time
}

// NewState creates a State with the default retry window. A nil clock
// means the system clock.
func NewState(clk clock.Clock) *State {
	clk = clock.OrSystem(clk)
	now := clk.Now()
	return &State{
		clock:       clk,
		retryWindow: DefaultRetryWindow,
		limitedAt:   now,
		windowStart: now,
	}
}

// SetRetryWindow changes the backoff period. Non-positive values are ignored.
func (s *State) SetRetryWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryWindow = d
}

// RetryWindow returns the configured backoff period.
func (s *State) RetryWindow() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryWindow
}

// Status returns the derived backoff view. MinutesLeft may be negative
// once the window has passed; the flag itself stays raised until the
// next successful response.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(s.clock.Now())
}

func (s *State) statusLocked(now time.Time) Status {
	since := int(now.Sub(s.limitedAt).Minutes())
	return Status{
		Limited:      s.limited,
		LimitedAt:    s.limitedAt,
		MinutesSince: since,
		MinutesLeft:  int(s.retryWindow.Minutes()) - since,
	}
}

// Blocked reports whether requests must be refused because a 429 was
// received less than one retry window ago.
func (s *State) Blocked() (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	st := s.statusLocked(now)
	return st, s.limited && now.Sub(s.limitedAt) < s.retryWindow
}

// MarkLimited raises the backoff flag as of now.
func (s *State) MarkLimited() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.limited = true
	s.limitedAt = now
	return s.statusLocked(now)
}

// Clear lowers the backoff flag.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = false
}

// Increment counts one request, first starting a new window when the
// current one is older than CounterWindow. It returns the new count.
func (s *State) Increment() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if now.After(s.windowStart.Add(CounterWindow)) {
		s.count = 0
		s.windowStart = now
	}
	s.count++
	return s.count
}

// Requests returns the request counter snapshot.
func (s *State) Requests() RequestCount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RequestCount{Count: s.count, WindowStart: s.windowStart}
}
