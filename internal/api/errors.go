package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/middleware"
	"github.com/maltehedderich/steam-api-go/internal/steam"
)

var validationErrors = []error{
	steam.ErrIDNotProvided,
	steam.ErrIDsNotProvided,
	steam.ErrAppIDNotProvided,
	steam.ErrFilterNotProvided,
	steam.ErrInvalidCount,
	steam.ErrNamesNotProvided,
}

var notFoundErrors = []error{
	steam.ErrIDNotFound,
	steam.ErrGameNewsNotFound,
	steam.ErrGameNotFound,
	steam.ErrProfileNotFound,
	steam.ErrAppNotFound,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps a client error onto an HTTP status.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	var rle *steam.RateLimitError
	if errors.As(err, &rle) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rle.RetryAfter().Seconds())))
	}

	fields := logger.Fields{
		"error":  err.Error(),
		"path":   r.URL.Path,
		"status": status,
	}
	log := logger.FromContext(r.Context(), "api")
	if status >= http.StatusInternalServerError {
		log.Warn("steam call failed", fields)
	} else {
		log.Debug("steam call rejected", fields)
	}

	middleware.WriteJSONError(w, r, status, code, err.Error())
}

// classify checks upstream failures before domain not-found errors: the
// endpoint methods wrap any failure in their not-found sentinel, and a
// timeout or a Steam outage must not read as a missing resource.
func classify(err error) (int, string) {
	switch {
	case isAny(err, validationErrors):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, steam.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, steam.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	case isTimeout(err):
		return http.StatusGatewayTimeout, "upstream_timeout"
	case isUpstreamFailure(err):
		return http.StatusBadGateway, "upstream_error"
	case isAny(err, notFoundErrors):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isUpstreamFailure is true for 5xx answers and transport errors. A 4xx
// answer is left to the not-found sentinels since Steam reports private
// profiles that way.
func isUpstreamFailure(err error) bool {
	var se *steam.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
