package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
	"github.com/maltehedderich/steam-api-go/internal/middleware"
)

// Middleware enforces the client limit on every request it wraps and
// answers 429 once a caller's bucket is empty. A nil limiter disables it.
func Middleware(limiter *Limiter, keys *KeyGenerator) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context(), "ratelimit")

			key, ok := keys.GenerateKey(r)
			if !ok {
				metrics.RecordClientLimitCheck("skipped")
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Error("client limit check failed", logger.Fields{
					"error": err.Error(),
					"key":   key,
					"path":  r.URL.Path,
				})
				metrics.RecordClientLimitCheck("error")
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				log.Warn("client limit exceeded", logger.Fields{
					"key":    key,
					"limit":  result.Limit,
					"path":   r.URL.Path,
					"method": r.Method,
				})
				metrics.RecordClientLimitCheck("rejected")
				middleware.WriteJSONError(w, r, http.StatusTooManyRequests, "rate_limit_exceeded",
					fmt.Sprintf("Rate limit exceeded, retry in %d seconds", retryAfterSeconds(result)))
				return
			}

			if err == nil {
				metrics.RecordClientLimitCheck("allowed")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result)))
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(result *Result) int {
	secs := int(result.RetryAfter.Seconds())
	if result.RetryAfter > 0 && float64(secs) < result.RetryAfter.Seconds() {
		secs++
	}
	return secs
}
