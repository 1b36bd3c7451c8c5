package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maltehedderich/steam-api-go/internal/clock"
	"github.com/maltehedderich/steam-api-go/internal/config"
	"github.com/maltehedderich/steam-api-go/internal/logger"
)

// TokenValidator validates bearer JWTs
type TokenValidator struct {
	config    *config.AuthConfig
	logger    *logger.ComponentLogger
	parser    *jwt.Parser
	publicKey *rsa.PublicKey
	hmacKey   []byte
}

// Claims represents the JWT claims we expect
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Scopes splits the space separated scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// NewTokenValidator creates a new token validator. A nil clock means the
// system clock.
func NewTokenValidator(cfg *config.AuthConfig, clk clock.Clock) (*TokenValidator, error) {
	clk = clock.OrSystem(clk)

	tv := &TokenValidator{
		config: cfg,
		logger: logger.Get().WithComponent("auth.validator"),
	}

	if err := tv.loadSigningKey(); err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cfg.Algorithm}),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithTimeFunc(clk.Now),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	tv.parser = jwt.NewParser(opts...)

	tv.logger.Info("token validator initialized", logger.Fields{
		"algorithm": cfg.Algorithm,
	})

	return tv, nil
}

// loadSigningKey loads the signing key based on configuration
func (tv *TokenValidator) loadSigningKey() error {
	switch tv.config.Algorithm {
	case "RS256", "RS384", "RS512":
		if tv.config.PublicKeyFile == "" {
			return fmt.Errorf("RS* algorithm requires public key file")
		}
		return tv.loadRSAPublicKey(tv.config.PublicKeyFile)
	case "HS256", "HS384", "HS512":
		if tv.config.SharedSecret == "" {
			return fmt.Errorf("HS* algorithm requires shared secret")
		}
		tv.hmacKey = []byte(tv.config.SharedSecret)
		return nil
	default:
		return fmt.Errorf("unsupported algorithm: %s", tv.config.Algorithm)
	}
}

// loadRSAPublicKey loads an RSA public key from a PEM file
func (tv *TokenValidator) loadRSAPublicKey(path string) error {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	block, _ := pem.Decode(keyData)
	if block == nil {
		return fmt.Errorf("failed to decode PEM block")
	}

	// Try parsing as PKIX public key
	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Try parsing as PKCS1 public key
		pubKey, err = x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return fmt.Errorf("failed to parse public key: %w", err)
		}
	}

	rsaKey, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("public key is not RSA")
	}
	tv.publicKey = rsaKey
	return nil
}

// ValidateToken validates a JWT token and returns the claims
func (tv *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := tv.parser.ParseWithClaims(tokenString, claims, tv.keyFunc)
	if err != nil {
		tv.logger.Debug("token validation failed", logger.Fields{
			"error": err.Error(),
		})

		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &ValidationError{
				Code:    "token_expired",
				Message: "Token has expired",
				Err:     err,
			}
		}
		return nil, &ValidationError{
			Code:    "invalid_token",
			Message: "Token validation failed",
			Err:     err,
		}
	}
	if !token.Valid {
		return nil, &ValidationError{
			Code:    "invalid_token",
			Message: "Token is not valid",
		}
	}

	if claims.Subject == "" {
		return nil, &ValidationError{
			Code:    "invalid_token",
			Message: "Required claim missing: sub",
		}
	}

	return claims, nil
}

// keyFunc returns the key for validating the token. The signing method
// is already restricted by the parser.
func (tv *TokenValidator) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		return tv.publicKey, nil
	case *jwt.SigningMethodHMAC:
		return tv.hmacKey, nil
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// ValidationError represents a token validation error
type ValidationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
