package cache

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by Update when the entry kept changing under
// concurrent writers and every retry lost the race.
var ErrConflict = errors.New("cache: concurrent update conflict")

// maxUpdateAttempts bounds the optimistic retries of Update.
const maxUpdateAttempts = 16

// UpdateFunc computes the value to store from the current one. ok is
// false when the key is absent or expired. fn may run more than once and
// must not have side effects beyond its return values.
type UpdateFunc func(current string, ok bool) (string, error)

// Updater is implemented by stores that can read-modify-write a key
// atomically with respect to other writers of the same store, including
// other processes sharing it.
type Updater interface {
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error
}

var (
	_ Updater = (*MemoryStore)(nil)
	_ Updater = (*RedisStore)(nil)
	_ Updater = (*DynamoDBStore)(nil)
	_ Updater = (*SQLiteStore)(nil)
)

// Update applies fn under the store's lock.
func (ms *MemoryStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrClosed
	}

	now := ms.clock.Now()
	var current string
	e, ok := ms.entries[key]
	if ok = ok && now.Before(e.expiry); ok {
		current = e.value
	}

	value, err := fn(current, ok)
	if err != nil {
		return err
	}
	ms.entries[key] = memoryEntry{value: value, expiry: now.Add(ttl)}
	return nil
}
