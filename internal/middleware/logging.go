package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/logger"
)

// sensitiveParams are query parameters whose values never reach the log.
var sensitiveParams = []string{"key", "api_key", "access_token"}

// Logging returns a middleware that logs HTTP requests and responses
func Logging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := NewResponseWriter(w)
			log := logger.FromContext(r.Context(), "http")

			log.Debug("incoming request", logger.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"query":      SanitizeQuery(r.URL.RawQuery),
				"remote_ip":  getClientIP(r),
				"user_agent": r.UserAgent(),
			})

			next.ServeHTTP(rw, r)

			fields := logger.Fields{
				"method":        r.Method,
				"path":          r.URL.Path,
				"status":        rw.Status(),
				"duration_ms":   time.Since(start).Milliseconds(),
				"response_size": rw.Size(),
				"remote_ip":     getClientIP(r),
			}

			message := "request completed"
			switch {
			case rw.Status() >= 500:
				log.Error(message, fields)
			case rw.Status() >= 400:
				log.Warn(message, fields)
			default:
				log.Info(message, fields)
			}
		})
	}
}

// SanitizeQuery redacts credential parameters from a raw query string.
func SanitizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[unparseable]"
	}
	redacted := false
	for _, name := range sensitiveParams {
		if q.Has(name) {
			q.Set(name, "REDACTED")
			redacted = true
		}
	}
	if !redacted {
		return rawQuery
	}
	return q.Encode()
}

// RedactURL returns u as a string with credential parameters redacted.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.RawQuery = SanitizeQuery(u.RawQuery)
	return c.String()
}
