package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestCaller_HasScope(t *testing.T) {
	caller := NewCaller(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "dashboard"},
		Scope:            "steam:read  steam:admin",
	})

	tests := []struct {
		scope    string
		expected bool
	}{
		{"steam:read", true},
		{"steam:admin", true},
		{"steam:write", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			if got := caller.HasScope(tt.scope); got != tt.expected {
				t.Errorf("HasScope(%q) = %v, want %v", tt.scope, got, tt.expected)
			}
		})
	}
}

func TestCallerContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := GetCaller(ctx); ok {
		t.Error("Expected no caller in empty context")
	}
	if Subject(ctx) != "" {
		t.Error("Expected empty subject for anonymous context")
	}

	caller := &Caller{Subject: "dashboard"}
	ctx = SetCaller(ctx, caller)

	got, ok := GetCaller(ctx)
	if !ok || got != caller {
		t.Fatal("Expected caller to be retrievable")
	}
	if Subject(ctx) != "dashboard" {
		t.Errorf("Expected subject dashboard, got %s", Subject(ctx))
	}
}
