package auth

import (
	"context"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	// CallerContextKey is the context key for the authenticated caller
	CallerContextKey ContextKey = "auth_caller"
)

// Caller is the authenticated API caller stored in the request context
type Caller struct {
	Subject string
	Scopes  []string
	Claims  *Claims
}

// NewCaller creates a caller from validated claims
func NewCaller(claims *Claims) *Caller {
	return &Caller{
		Subject: claims.Subject,
		Scopes:  claims.Scopes(),
		Claims:  claims,
	}
}

// SetCaller stores the caller in the request context
func SetCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}

// GetCaller retrieves the caller from the request context
func GetCaller(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(CallerContextKey).(*Caller)
	return caller, ok
}

// Subject returns the authenticated subject, or "" for anonymous requests.
func Subject(ctx context.Context) string {
	if caller, ok := GetCaller(ctx); ok {
		return caller.Subject
	}
	return ""
}

// HasScope checks if the caller was granted scope
func (c *Caller) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
