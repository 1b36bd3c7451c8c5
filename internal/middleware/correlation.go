package middleware

import (
	"net/http"

	"github.com/maltehedderich/steam-api-go/internal/logger"
)

const (
	// CorrelationIDHeader is the HTTP header for correlation ID
	CorrelationIDHeader = "X-Correlation-ID"

	maxCorrelationIDLength = 128
)

// CorrelationID returns a middleware that adds correlation ID to requests
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := r.Header.Get(CorrelationIDHeader)

			// Oversized client IDs are replaced to keep log lines bounded
			if correlationID == "" || len(correlationID) > maxCorrelationIDLength {
				correlationID = logger.GenerateCorrelationID()
			}

			ctx := logger.WithCorrelationID(r.Context(), correlationID)
			w.Header().Set(CorrelationIDHeader, correlationID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
