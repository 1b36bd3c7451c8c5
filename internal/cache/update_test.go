package cache

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
)

// increment adds one to a decimal counter, starting from zero.
func increment(current string, ok bool) (string, error) {
	if !ok {
		return "1", nil
	}
	n, err := strconv.Atoi(current)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n + 1), nil
}

func testConcurrentUpdates(t *testing.T, u Updater, s Store) {
	t.Helper()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := u.Update(ctx, "counter", time.Hour, increment); err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	v, ok, err := s.Get(ctx, "counter")
	if err != nil || !ok {
		t.Fatalf("expected counter, ok=%v err=%v", ok, err)
	}
	if v != "20" {
		t.Errorf("expected 20 after concurrent updates, got %s", v)
	}
}

func TestMemoryStore_UpdateIsAtomic(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()
	testConcurrentUpdates(t, s, s)
}

func TestMemoryStore_UpdateTreatsExpiredAsAbsent(t *testing.T) {
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	s := NewMemoryStore(clk)
	defer s.Close()
	ctx := context.Background()

	_ = s.Set(ctx, "k", "stale", time.Second)
	clk.Advance(time.Second)

	err := s.Update(ctx, "k", time.Minute, func(current string, ok bool) (string, error) {
		if ok || current != "" {
			t.Errorf("expected an absent entry, got %q ok=%v", current, ok)
		}
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "fresh" {
		t.Errorf("expected fresh value, got %q ok=%v", v, ok)
	}
}

func TestMemoryStore_UpdateKeepsValueOnError(t *testing.T) {
	s := NewMemoryStore(nil)
	defer s.Close()
	ctx := context.Background()
	_ = s.Set(ctx, "k", "v", time.Minute)

	boom := errors.New("boom")
	if err := s.Update(ctx, "k", time.Minute, func(string, bool) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Errorf("expected fn error, got %v", err)
	}
	if v, _, _ := s.Get(ctx, "k"); v != "v" {
		t.Errorf("failed update should not change the value, got %q", v)
	}

	_ = s.Close()
	if err := s.Update(ctx, "k", time.Minute, increment); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestSQLiteStore_UpdateIsAtomic(t *testing.T) {
	s := openTestSQLite(t, nil)
	testConcurrentUpdates(t, s, s)
}

func TestSQLiteStore_UpdateSharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	var stores []*SQLiteStore
	for range 2 {
		s, err := OpenSQLiteStore(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		stores = append(stores, s)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(s *SQLiteStore) {
			defer wg.Done()
			if err := s.Update(ctx, "counter", time.Hour, increment); err != nil {
				t.Errorf("update: %v", err)
			}
		}(stores[i%2])
	}
	wg.Wait()

	if v, _, _ := stores[0].Get(ctx, "counter"); v != "20" {
		t.Errorf("expected 20 across both handles, got %q", v)
	}
}

func TestSQLiteStore_UpdateRollsBackOnError(t *testing.T) {
	s := openTestSQLite(t, nil)
	ctx := context.Background()
	_ = s.Set(ctx, "k", "v", time.Minute)

	boom := errors.New("boom")
	if err := s.Update(ctx, "k", time.Minute, func(string, bool) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Errorf("expected fn error, got %v", err)
	}
	if v, _, _ := s.Get(ctx, "k"); v != "v" {
		t.Errorf("failed update should not change the value, got %q", v)
	}
	// The connection went back to the pool without an open transaction.
	if err := s.Update(ctx, "k", time.Minute, func(string, bool) (string, error) { return "w", nil }); err != nil {
		t.Fatalf("update after rollback: %v", err)
	}
}
