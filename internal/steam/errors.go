package steam

import (
	"errors"
	"fmt"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/circuitbreaker"
)

// Validation errors are returned before any network call.
var (
	ErrMissingAPIKey     = errors.New("steam: API key is required")
	ErrIDNotProvided     = errors.New("identifier not provided")
	ErrIDsNotProvided    = errors.New("IDs not provided")
	ErrAppIDNotProvided  = errors.New("AppID not provided.")
	ErrFilterNotProvided = errors.New("filter not provided")
	ErrInvalidCount      = errors.New("count must be at least 1")
	ErrNamesNotProvided  = errors.New("achievement names not provided")
)

// Gateway errors.
var (
	// ErrRateLimited matches every *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrTooManyRequests matches a *RateLimitError caused by a 429 response.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrInvalidJSON is returned when Steam answers 200 with a body that is not JSON.
	ErrInvalidJSON = errors.New("invalid JSON in steam response")
	// ErrCircuitOpen is returned while the upstream circuit breaker is open.
	ErrCircuitOpen = circuitbreaker.ErrCircuitOpen
)

// Domain errors: the response decoded but signals absence.
var (
	ErrIDNotFound         = errors.New("identifier not found")
	ErrGameNewsNotFound   = errors.New("game news not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrProfileNotFound    = errors.New("profile not found or private")
	ErrAppNotFound        = errors.New("app not found")
	ErrUnexpectedResponse = errors.New("unexpected response from steam")
	ErrInvalidResponse    = errors.New("response from steam invalid")
)

// RateLimitError reports that a call was refused because of throttling.
// Throttled is true when Steam itself answered 429 and false when the
// client refused the call because an earlier 429 is still in effect.
type RateLimitError struct {
	Throttled   bool
	MinutesLeft int
}

func (e *RateLimitError) Error() string {
	if e.Throttled {
		return fmt.Sprintf("too many requests, retry in %d minutes", e.MinutesLeft)
	}
	return fmt.Sprintf("rate limited, retry in %d minutes", e.MinutesLeft)
}

// Is makes errors.Is(err, ErrRateLimited) hold for every rate-limit error
// and errors.Is(err, ErrTooManyRequests) only for 429 responses.
func (e *RateLimitError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return true
	case ErrTooManyRequests:
		return e.Throttled
	}
	return false
}

// RetryAfter is the wait suggested to callers, never less than a minute.
func (e *RateLimitError) RetryAfter() time.Duration {
	if e.MinutesLeft < 1 {
		return time.Minute
	}
	return time.Duration(e.MinutesLeft) * time.Minute
}

// StatusError is returned for any HTTP status other than 200 and 429.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("steam returned status %d for %s", e.StatusCode, e.Endpoint)
}
