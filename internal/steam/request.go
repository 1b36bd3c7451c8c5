package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/cache"
	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
	"github.com/maltehedderich/steam-api-go/internal/tracing"
)

// maxBodySize bounds a single response; GetAppList is the largest at a
// few megabytes.
const maxBodySize = 32 << 20

// RequestOptions tune a single call.
type RequestOptions struct {
	// ForceRefresh skips the cache lookup. The fresh response is still cached.
	ForceRefresh bool
	// CacheTTL overrides the client's default TTL when positive.
	CacheTTL time.Duration
}

// RequestOption sets a field of RequestOptions.
type RequestOption func(*RequestOptions)

// WithForceRefresh bypasses the cache for this call.
func WithForceRefresh() RequestOption {
	return func(o *RequestOptions) { o.ForceRefresh = true }
}

// WithCacheTTL caches this call's response for ttl.
func WithCacheTTL(ttl time.Duration) RequestOption {
	return func(o *RequestOptions) { o.CacheTTL = ttl }
}

func applyOptions(opts []RequestOption) RequestOptions {
	var o RequestOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// target describes one upstream call.
type target struct {
	base     string
	endpoint string
	// keyed calls carry the API key, pass the rate-limit gate and are
	// counted. Store calls are not.
	keyed bool
}

// Request performs a GET of endpoint, a path relative to the base URL
// with an optional query string such as
// "ISteamUser/GetPlayerBans/v1?steamids=76561198007433923", and returns
// the raw JSON body.
func (c *Client) Request(ctx context.Context, endpoint string, opts ...RequestOption) (json.RawMessage, error) {
	return c.do(ctx, target{base: c.baseURL, endpoint: endpoint, keyed: true}, applyOptions(opts))
}

func (c *Client) do(ctx context.Context, t target, opts RequestOptions) (json.RawMessage, error) {
	u, err := c.buildURL(t)
	if err != nil {
		return nil, err
	}
	label := endpointLabel(t.endpoint)
	key := cache.Key(u.String())
	log := c.logger.WithContext(ctx)

	if c.cache != nil && !opts.ForceRefresh {
		if body, ok := c.cached(ctx, key, log); ok {
			return body, nil
		}
	}

	if t.keyed {
		if st, blocked := c.state.Blocked(); blocked {
			metrics.RecordRateLimitRejection("gate")
			log.Warn("request refused while rate limited", logger.Fields{
				"endpoint":     label,
				"minutes_left": st.MinutesLeft,
			})
			return nil, &RateLimitError{MinutesLeft: st.MinutesLeft}
		}
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	if t.keyed {
		metrics.SetWindowRequests(c.state.Increment())
	}

	body, err := c.fetch(ctx, label, u, t.keyed)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		ttl := c.cacheTTL
		if opts.CacheTTL > 0 {
			ttl = opts.CacheTTL
		}
		if err := c.cache.Set(ctx, key, string(body), ttl); err != nil {
			log.Warn("failed to write cache entry", logger.Fields{
				"endpoint": label,
				"error":    err.Error(),
			})
		}
	}

	return body, nil
}

func (c *Client) cached(ctx context.Context, key string, log *logger.ComponentLogger) (json.RawMessage, bool) {
	value, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheLookup("error")
		log.Warn("cache read failed, fetching from steam", logger.Fields{"error": err.Error()})
		return nil, false
	case !ok:
		metrics.RecordCacheLookup("miss")
		return nil, false
	case !json.Valid([]byte(value)):
		metrics.RecordCacheLookup("corrupt")
		log.Warn("discarding corrupt cache entry", logger.Fields{"cache_key": key})
		if err := c.cache.Delete(ctx, key); err != nil {
			log.Warn("failed to delete corrupt cache entry", logger.Fields{"error": err.Error()})
		}
		return nil, false
	}

	metrics.RecordCacheLookup("hit")
	return json.RawMessage(value), true
}

// fetch performs the HTTP call behind the circuit breaker of u's host.
func (c *Client) fetch(ctx context.Context, label string, u *url.URL, keyed bool) (json.RawMessage, error) {
	redacted := redactURL(u)
	ctx, span := tracing.StartClientSpan(ctx, label, redacted)

	var (
		body   json.RawMessage
		status int
	)
	call := func() error {
		var err error
		body, status, err = c.roundTrip(ctx, label, u, keyed)
		return err
	}

	start := time.Now()
	var err error
	if c.breakers != nil {
		err = c.breakers.Get(u.Host).Execute(call)
	} else {
		err = call()
	}
	duration := time.Since(start)

	tracing.EndClientSpan(span, status, err)
	metrics.RecordSteamRequest(label, outcome(err), duration)

	log := c.logger.WithContext(ctx)
	if err != nil {
		log.Warn("steam request failed", logger.Fields{
			"endpoint":    label,
			"url":         redacted,
			"status":      status,
			"duration_ms": duration.Milliseconds(),
			"error":       err.Error(),
		})
		return nil, err
	}

	log.Debug("steam request completed", logger.Fields{
		"endpoint":    label,
		"url":         redacted,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
		"bytes":       len(body),
	})
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, label string, u *url.URL, keyed bool) (json.RawMessage, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	tracing.InjectTraceContext(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if keyed {
			c.state.Clear()
			metrics.SetRateLimited(false)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, resp.StatusCode, err
		}
		if !json.Valid(body) {
			return nil, resp.StatusCode, fmt.Errorf("%w: %s", ErrInvalidJSON, label)
		}
		return body, resp.StatusCode, nil

	case http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		if !keyed {
			return nil, resp.StatusCode, &RateLimitError{Throttled: true, MinutesLeft: int(c.state.RetryWindow().Minutes())}
		}
		st := c.state.MarkLimited()
		metrics.SetRateLimited(true)
		metrics.RecordRateLimitRejection("throttled")
		return nil, resp.StatusCode, &RateLimitError{Throttled: true, MinutesLeft: st.MinutesLeft}

	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Endpoint: label}
	}
}

func (c *Client) buildURL(t target) (*url.URL, error) {
	u, err := url.Parse(t.base + strings.TrimPrefix(t.endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", t.endpoint, err)
	}
	if t.keyed {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// endpointLabel turns "ISteamUser/GetPlayerBans/v1?steamids=1" into
// "ISteamUser/GetPlayerBans" for metrics and spans.
func endpointLabel(endpoint string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(endpoint, "/"), "?")
	if i := strings.LastIndex(path, "/"); i >= 0 && isVersion(path[i+1:]) {
		path = path[:i]
	}
	return path
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func redactURL(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("key") {
		q.Del("key")
		c.RawQuery = q.Encode()
	}
	return c.String()
}

// isUpstreamFailure decides which errors trip the circuit breaker: only
// transport failures and 5xx responses. Throttling and 4xx answers mean
// Steam is up.
func isUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrInvalidJSON) {
		return false
	}
	return true
}

func outcome(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "throttled"
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, ErrInvalidJSON):
		return "invalid_json"
	default:
		return "transport"
	}
}
