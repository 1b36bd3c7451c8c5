package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/middleware"
)

// Middleware records request metrics under route, which should be the
// mux pattern the handler is registered for so that path parameters do
// not explode label cardinality.
func Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			IncActiveRequests()
			defer DecActiveRequests()

			start := time.Now()
			wrapped := middleware.NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapped.Status()), time.Since(start), wrapped.Size())
		})
	}
}
