package middleware

import (
	"net/http"

	"github.com/maltehedderich/steam-api-go/internal/logger"
)

// ErrorResponse is the body of every error returned by the HTTP API.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// WriteJSONError writes a JSON error response carrying the request's
// correlation ID.
func WriteJSONError(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	correlationID := logger.GetCorrelationID(r.Context())

	resp := ErrorResponse{
		Error:         errorCode,
		Message:       message,
		CorrelationID: correlationID,
	}

	if err := WriteJSON(w, statusCode, resp); err != nil {
		logger.Get().WithComponent("middleware.error_handling").Error("failed to encode error response", logger.Fields{
			"error":          err.Error(),
			"correlation_id": correlationID,
		})
	}
}
