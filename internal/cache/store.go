// Package cache stores raw Steam Web API responses keyed by request URL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// KeyPrefix namespaces every cache key.
const KeyPrefix = "steam_cache:"

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache: store is closed")

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Get returns the value for key and true, or "" and false when the
	// key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks if the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string // memory, redis, dynamodb, sqlite; empty disables caching

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DynamoDBTable  string
	DynamoDBRegion string

	SQLitePath string
}

// New builds the store described by cfg. It returns a nil Store and no
// error when caching is disabled.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(nil), nil
	case "redis":
		s, err := NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis cache: %w", err)
		}
		return s, nil
	case "dynamodb":
		s, err := NewDynamoDBStore(ctx, cfg.DynamoDBTable, cfg.DynamoDBRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB cache: %w", err)
		}
		return s, nil
	case "sqlite":
		s, err := OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite cache: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// Key derives the cache key of a request URL. The "key" query parameter
// carrying the API credential is dropped so secrets never reach the
// store, and the remaining parameters are sorted so equivalent URLs
// share an entry.
func Key(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return KeyPrefix + rawURL
	}
	q := u.Query()
	q.Del("key")
	u.RawQuery = q.Encode()
	return KeyPrefix + u.String()
}
