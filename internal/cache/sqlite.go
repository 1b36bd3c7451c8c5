package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/clock"
	"github.com/maltehedderich/steam-api-go/internal/logger"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS steam_cache (
	cache_key  TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
)`

// DefaultPurgeInterval is how often expired SQLite rows are deleted.
const DefaultPurgeInterval = time.Minute

// SQLiteStore persists entries in a local SQLite file so the cache
// survives restarts without running a separate server. Reads skip expired
// rows; a background goroutine deletes them every purge interval.
type SQLiteStore struct {
	db    *sql.DB
	clock clock.Clock

	purgeEvery time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closeErr   error
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	return openSQLiteStore(path, nil, DefaultPurgeInterval)
}

func openSQLiteStore(path string, clk clock.Clock, purgeEvery time.Duration) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	if purgeEvery <= 0 {
		purgeEvery = DefaultPurgeInterval
	}

	s := &SQLiteStore{
		db:         db,
		clock:      clock.OrSystem(clk),
		purgeEvery: purgeEvery,
		stopCh:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.purgeLoop()

	return s, nil
}

func (s *SQLiteStore) now() int64 {
	return s.clock.Now().UTC().UnixMilli()
}

// Get returns the live value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM steam_cache WHERE cache_key = ? AND expires_at > ?`,
		key, s.now(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select cache entry: %w", err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (s *SQLiteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steam_cache (cache_key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, s.now()+ttl.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Update runs fn inside a BEGIN IMMEDIATE transaction, which holds the
// database write lock from the read to the write, so processes sharing the
// file serialize on it.
func (s *SQLiteStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire sqlite connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("begin cache update: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	now := s.now()
	var current string
	err = conn.QueryRowContext(ctx,
		`SELECT value FROM steam_cache WHERE cache_key = ? AND expires_at > ?`,
		key, now,
	).Scan(&current)
	ok := err == nil
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("select cache entry: %w", err)
	}

	value, err := fn(current, ok)
	if err != nil {
		return err
	}

	if _, err = conn.ExecContext(ctx,
		`INSERT INTO steam_cache (cache_key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, now+ttl.Milliseconds(),
	); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	if _, err = conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("commit cache update: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM steam_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Purge removes every expired entry and returns how many were dropped.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM steam_cache WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the purge goroutine and closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func (s *SQLiteStore) purgeLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.purgeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purgeOnce()
		case <-s.stopCh:
			return
		}
	}
}

func (s *SQLiteStore) purgeOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.purgeEvery)
	defer cancel()

	n, err := s.Purge(ctx)
	log := logger.Get().WithComponent("cache.sqlite")
	if err != nil {
		log.Warn("failed to purge expired cache entries", logger.Fields{"error": err.Error()})
		return
	}
	if n > 0 {
		log.Debug("purged expired cache entries", logger.Fields{"rows": n})
	}
}
