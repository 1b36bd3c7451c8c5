package steam

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/cache"
	"github.com/maltehedderich/steam-api-go/internal/clock"
)

const (
	testAPIKey = "ABCDEF0123456789ABCDEF0123456789"

	pho3niX90   = "76561198007433923"
	pho3niX90v2 = "STEAM_0:1:23584097"
	pho3niX90v3 = "[U:1:47168195]"
)

// fakeSteam serves canned responses by path and records every request.
type fakeSteam struct {
	srv *httptest.Server

	mu      sync.Mutex
	routes  map[string]http.HandlerFunc
	calls   map[string]int
	queries []url.Values
	total   int
}

func newFakeSteam(t *testing.T) *fakeSteam {
	t.Helper()
	f := &fakeSteam{
		routes: make(map[string]http.HandlerFunc),
		calls:  make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSteam) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.total++
	f.queries = append(f.queries, r.URL.Query())
	h, ok := f.routes[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (f *fakeSteam) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[path] = h
}

// reply answers path with status and body.
func (f *fakeSteam) reply(path string, status int, body string) {
	f.handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func (f *fakeSteam) ok(path, body string) {
	f.reply(path, http.StatusOK, body)
}

func (f *fakeSteam) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeSteam) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

func (f *fakeSteam) lastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

type testEnv struct {
	steam  *fakeSteam
	clock  *clock.Manual
	cache  *cache.MemoryStore
	client *Client
}

// newTestEnv builds a client against a fake Steam with a memory cache and
// a manual clock. mutate may adjust the config before the client is built.
func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	f := newFakeSteam(t)
	clk := clock.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	store := cache.NewMemoryStore(clk)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &Config{
		APIKey:   testAPIKey,
		BaseURL:  f.srv.URL,
		StoreURL: f.srv.URL + "/store",
		Cache:    store,
		Clock:    clk,
	}
	if mutate != nil {
		mutate(cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{steam: f, clock: clk, cache: store, client: c}
}
