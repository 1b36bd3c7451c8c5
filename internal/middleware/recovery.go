package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/maltehedderich/steam-api-go/internal/logger"
)

// Recovery returns a middleware that recovers from panics
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.FromContext(r.Context(), "recovery").Error("panic recovered", logger.Fields{
						"error":     fmt.Sprintf("%v", err),
						"stack":     string(debug.Stack()),
						"method":    r.Method,
						"path":      r.URL.Path,
						"remote_ip": getClientIP(r),
					})

					WriteJSONError(w, r, http.StatusInternalServerError, "internal_server_error", "An internal error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
