package cache

import (
	"context"
	"sync"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
)

// MemoryStore keeps entries in a map guarded by a mutex. A background
// goroutine evicts expired entries once a minute. It suits single
// process deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	clock   clock.Clock
	stopCh  chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

type memoryEntry struct {
	value  string
	expiry time.Time
}

// NewMemoryStore creates an empty store. A nil clock means the system clock.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	ms := &MemoryStore{
		entries: make(map[string]memoryEntry),
		clock:   clock.OrSystem(clk),
		stopCh:  make(chan struct{}),
	}

	ms.wg.Add(1)
	go ms.cleanupLoop()

	return ms
}

// Get returns the live value stored under key.
func (ms *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	e, ok := ms.entries[key]
	if !ok || !ms.clock.Now().Before(e.expiry) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key until ttl elapses.
func (ms *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrClosed
	}
	ms.entries[key] = memoryEntry{value: value, expiry: ms.clock.Now().Add(ttl)}
	return nil
}

// Delete removes key.
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.entries, key)
	return nil
}

// Ping always succeeds.
func (ms *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine. Entries stay readable but Set
// returns ErrClosed.
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	if ms.closed {
		ms.mu.Unlock()
		return nil
	}
	ms.closed = true
	ms.mu.Unlock()

	close(ms.stopCh)
	ms.wg.Wait()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.entries)
}

func (ms *MemoryStore) cleanupLoop() {
	defer ms.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.cleanup()
		case <-ms.stopCh:
			return
		}
	}
}

func (ms *MemoryStore) cleanup() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.clock.Now()
	for key, e := range ms.entries {
		if !now.Before(e.expiry) {
			delete(ms.entries, key)
		}
	}
}
