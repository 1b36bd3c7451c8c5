package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
	"github.com/maltehedderich/steam-api-go/internal/middleware"
)

// Middleware requires a valid bearer token on every request. A nil
// validator disables authentication.
func Middleware(validator *TokenValidator) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context(), "auth.middleware")

			tokenString, ok := bearerToken(r)
			if !ok {
				metrics.RecordAuthAttempt("missing_token")
				writeAuthError(w, r, http.StatusUnauthorized, "missing_token", "Bearer token is required")
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				var valErr *ValidationError
				code, message := "invalid_token", "Token validation failed"
				if errors.As(err, &valErr) {
					code, message = valErr.Code, valErr.Message
				}
				metrics.RecordAuthAttempt(code)
				log.Info("authentication failed", logger.Fields{
					"path": r.URL.Path,
					"code": code,
				})
				writeAuthError(w, r, http.StatusUnauthorized, code, message)
				return
			}

			caller := NewCaller(claims)
			if scope := validator.config.RequiredScope; scope != "" && !caller.HasScope(scope) {
				metrics.RecordAuthAttempt("insufficient_scope")
				log.Info("authorization denied", logger.Fields{
					"subject": caller.Subject,
					"path":    r.URL.Path,
					"scope":   scope,
				})
				writeAuthError(w, r, http.StatusForbidden, "insufficient_scope", "Token lacks the required scope")
				return
			}

			metrics.RecordAuthAttempt("success")
			log.Debug("authorization successful", logger.Fields{
				"subject": caller.Subject,
				"path":    r.URL.Path,
			})

			next.ServeHTTP(w, r.WithContext(SetCaller(r.Context(), caller)))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
		w.Header().Set("Cache-Control", "no-store")
	}
	middleware.WriteJSONError(w, r, status, code, message)
}
