// Package steam is a typed client for the Steam Web API.
//
// Every endpoint method funnels through Client.Request, which applies the
// response cache, the client-side rate-limit gate, the 24 hour request
// counter and the circuit breaker before calling Steam.
package steam

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/cache"
	"github.com/maltehedderich/steam-api-go/internal/circuitbreaker"
	"github.com/maltehedderich/steam-api-go/internal/clock"
	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/ratelimit"
)

const (
	DefaultBaseURL  = "http://api.steampowered.com/"
	DefaultStoreURL = "http://store.steampowered.com/"
	DefaultTimeout  = 5 * time.Second
	DefaultCacheTTL = 60 * time.Second

	userAgent = "steam-api-go"
)

// Config configures a Client. Only APIKey is required.
type Config struct {
	APIKey   string
	BaseURL  string
	StoreURL string
	Timeout  time.Duration

	// Cache stores raw responses; nil disables caching.
	Cache    cache.Store
	CacheTTL time.Duration

	// RetryWindow is how long calls are refused after a 429.
	RetryWindow time.Duration
	// State lets several clients share one backoff flag and counter.
	State *ratelimit.State

	// RequestsPerSecond paces outgoing calls when positive.
	RequestsPerSecond float64
	Burst             int

	// CircuitBreaker enables one breaker per upstream host when non-nil.
	CircuitBreaker *circuitbreaker.Config

	// HTTPClient replaces the default client; Timeout is ignored then.
	HTTPClient *http.Client
	Clock      clock.Clock
}

// Client calls the Steam Web API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	storeURL   string
	cacheTTL   time.Duration
	httpClient *http.Client
	cache      cache.Store
	state      *ratelimit.State
	pacer      *ratelimit.Pacer
	breakers   *circuitbreaker.Manager
	logger     *logger.ComponentLogger
}

// New creates a Client from cfg.
func New(cfg *Config) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	clk := clock.OrSystem(cfg.Clock)

	state := cfg.State
	if state == nil {
		state = ratelimit.NewState(clk)
	}
	state.SetRetryWindow(cfg.RetryWindow)

	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    withTrailingSlash(orDefault(cfg.BaseURL, DefaultBaseURL)),
		storeURL:   withTrailingSlash(orDefault(cfg.StoreURL, DefaultStoreURL)),
		cacheTTL:   cfg.CacheTTL,
		httpClient: cfg.HTTPClient,
		cache:      cfg.Cache,
		state:      state,
		pacer:      ratelimit.NewPacer(cfg.RequestsPerSecond, cfg.Burst),
		logger:     logger.Get().WithComponent("steam"),
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = DefaultCacheTTL
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.httpClient = newHTTPClient(timeout)
	}
	if cfg.CircuitBreaker != nil {
		c.breakers = circuitbreaker.NewManager(cfg.CircuitBreaker,
			circuitbreaker.WithClock(clk),
			circuitbreaker.WithClassifier(isUpstreamFailure),
		)
	}

	for _, raw := range []string{c.baseURL, c.storeURL} {
		if err := validateBaseURL(raw); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// SetRetryWindow changes how long calls are refused after a 429.
func (c *Client) SetRetryWindow(d time.Duration) {
	c.state.SetRetryWindow(d)
}

// RetryWindow returns the current backoff period.
func (c *Client) RetryWindow() time.Duration {
	return c.state.RetryWindow()
}

// RateLimitStatus returns the backoff flag with minutes since and left.
func (c *Client) RateLimitStatus() ratelimit.Status {
	return c.state.Status()
}

// RequestCount returns the calls made in the current 24 hour window.
func (c *Client) RequestCount() ratelimit.RequestCount {
	return c.state.Requests()
}

// BreakerStats returns the circuit breaker of every upstream host seen so
// far, or nil when circuit breaking is disabled.
func (c *Client) BreakerStats() []circuitbreaker.Stats {
	if c.breakers == nil {
		return nil
	}
	return c.breakers.GetStats()
}

// CacheEnabled reports whether responses are cached.
func (c *Client) CacheEnabled() bool {
	return c.cache != nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func validateBaseURL(raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("steam: base URL %q must use http or https", raw)
	}
	return nil
}
