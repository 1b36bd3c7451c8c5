package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// KeyPrefix namespaces client limit buckets in a shared store.
const KeyPrefix = "ratelimit:"

// KeyGenerator derives a bucket key from an HTTP request.
type KeyGenerator struct {
	parts   []string
	subject func(context.Context) string
}

// NewKeyGenerator creates a key generator for a template. Supported parts,
// joined with ":", are:
//   - "ip" - the client IP address
//   - "subject" - the authenticated caller, resolved with subject
//   - "route" - the matched route pattern, or the path when none matched
func NewKeyGenerator(template string, subject func(context.Context) string) *KeyGenerator {
	var parts []string
	for _, part := range strings.Split(template, ":") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return &KeyGenerator{parts: parts, subject: subject}
}

// ValidTemplate reports whether every part of template is known.
func ValidTemplate(template string) bool {
	kg := NewKeyGenerator(template, nil)
	if len(kg.parts) == 0 {
		return false
	}
	for _, part := range kg.parts {
		switch part {
		case "ip", "subject", "route":
		default:
			return false
		}
	}
	return true
}

// GenerateKey returns the request's bucket key, or false when a part
// cannot be resolved (for example "subject" on an anonymous request).
func (kg *KeyGenerator) GenerateKey(r *http.Request) (string, bool) {
	keyParts := make([]string, 0, len(kg.parts))

	for _, part := range kg.parts {
		switch part {
		case "ip":
			ip := clientIP(r)
			if ip == "" {
				return "", false
			}
			keyParts = append(keyParts, fmt.Sprintf("ip:%s", ip))

		case "subject":
			if kg.subject == nil {
				return "", false
			}
			sub := kg.subject(r.Context())
			if sub == "" {
				return "", false
			}
			keyParts = append(keyParts, fmt.Sprintf("subject:%s", sub))

		case "route":
			keyParts = append(keyParts, fmt.Sprintf("route:%s", route(r)))

		default:
			return "", false
		}
	}

	if len(keyParts) == 0 {
		return "", false
	}
	return KeyPrefix + strings.Join(keyParts, ":"), true
}

// clientIP prefers X-Forwarded-For, then X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}
