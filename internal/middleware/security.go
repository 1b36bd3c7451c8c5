package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/maltehedderich/steam-api-go/internal/logger"
)

// SecurityConfig configures response hardening headers and request
// screening.
type SecurityConfig struct {
	EnableHSTS            bool   `yaml:"enable_hsts" json:"enable_hsts" env:"ENABLE_HSTS"`
	HSTSMaxAge            int    `yaml:"hsts_max_age" json:"hsts_max_age" env:"HSTS_MAX_AGE"`
	HSTSIncludeSubdomains bool   `yaml:"hsts_include_subdomains" json:"hsts_include_subdomains" env:"HSTS_INCLUDE_SUBDOMAINS"`
	ContentTypeNosniff    bool   `yaml:"content_type_nosniff" json:"content_type_nosniff" env:"CONTENT_TYPE_NOSNIFF"`
	FrameOptions          string `yaml:"frame_options" json:"frame_options" env:"FRAME_OPTIONS"` // DENY, SAMEORIGIN
	ReferrerPolicy        string `yaml:"referrer_policy" json:"referrer_policy" env:"REFERRER_POLICY"`

	AllowedMethods    []string `yaml:"allowed_methods" json:"allowed_methods" env:"ALLOWED_METHODS"`
	MaxURLPathLength  int      `yaml:"max_url_path_length" json:"max_url_path_length" env:"MAX_URL_PATH_LENGTH"`
	BlockedUserAgents []string `yaml:"blocked_user_agents" json:"blocked_user_agents" env:"BLOCKED_USER_AGENTS"`
}

// Security returns a middleware that adds security headers to responses
func Security(cfg *SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if cfg.EnableHSTS {
				h.Set("Strict-Transport-Security", hstsHeader(cfg))
			}
			if cfg.ContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hstsHeader(cfg *SecurityConfig) string {
	parts := []string{"max-age=" + strconv.Itoa(cfg.HSTSMaxAge)}
	if cfg.HSTSIncludeSubdomains {
		parts = append(parts, "includeSubDomains")
	}
	return strings.Join(parts, "; ")
}

// InputValidation rejects requests with a disallowed method, an overlong
// path or a blocked User-Agent before they reach a handler.
func InputValidation(cfg *SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context(), "middleware.input_validation")

			if len(cfg.AllowedMethods) > 0 && !isMethodAllowed(r.Method, cfg.AllowedMethods) {
				log.Warn("method not allowed", logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				w.Header().Set("Allow", strings.Join(cfg.AllowedMethods, ", "))
				WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "HTTP method not allowed")
				return
			}

			if cfg.MaxURLPathLength > 0 && len(r.URL.Path) > cfg.MaxURLPathLength {
				log.Warn("URL path too long", logger.Fields{
					"path_length": len(r.URL.Path),
					"max_length":  cfg.MaxURLPathLength,
				})
				WriteJSONError(w, r, http.StatusRequestURITooLong, "uri_too_long", "Request URI exceeds maximum length")
				return
			}

			if ua := r.UserAgent(); isUserAgentBlocked(ua, cfg.BlockedUserAgents) {
				log.Warn("blocked user agent", logger.Fields{
					"user_agent": ua,
					"path":       r.URL.Path,
				})
				WriteJSONError(w, r, http.StatusForbidden, "forbidden", "Access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isMethodAllowed(method string, allowed []string) bool {
	return slices.ContainsFunc(allowed, func(m string) bool {
		return strings.EqualFold(m, method)
	})
}

func isUserAgentBlocked(userAgent string, blocked []string) bool {
	userAgent = strings.ToLower(userAgent)
	for _, b := range blocked {
		if b != "" && strings.Contains(userAgent, strings.ToLower(b)) {
			return true
		}
	}
	return false
}
