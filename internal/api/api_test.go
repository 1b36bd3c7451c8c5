package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/circuitbreaker"
	"github.com/maltehedderich/steam-api-go/internal/ratelimit"
	"github.com/maltehedderich/steam-api-go/internal/steam"
)

const pho3niX90 = "76561198007433923"

// fakeSteam overrides the Backend methods a test needs. Calling any other
// method panics through the nil embedded interface.
type fakeSteam struct {
	Backend

	err      error
	lastID   string
	lastApp  uint32
	lastOpts int
	lastIDs  []string
	count    int
	names    []string
	filter   string
	limit    int
}

func (f *fakeSteam) record(id string, app uint32, opts []steam.RequestOption) {
	f.lastID, f.lastApp, f.lastOpts = id, app, len(opts)
}

func (f *fakeSteam) ResolveID(ctx context.Context, id string, opts ...steam.RequestOption) (string, error) {
	f.record(id, 0, opts)
	if f.err != nil {
		return "", f.err
	}
	return pho3niX90, nil
}

func (f *fakeSteam) GetPlayerSummary(ctx context.Context, id string, opts ...steam.RequestOption) (*steam.PlayerSummary, error) {
	f.record(id, 0, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &steam.PlayerSummary{SteamID: pho3niX90, PersonaName: "Pho3niX90"}, nil
}

func (f *fakeSteam) GetPlayersBans(ctx context.Context, ids []string, opts ...steam.RequestOption) ([]steam.PlayerBans, error) {
	f.lastIDs = ids
	if len(ids) == 0 {
		return nil, steam.ErrIDsNotProvided
	}
	out := make([]steam.PlayerBans, len(ids))
	for i, id := range ids {
		out[i].SteamID = id
	}
	return out, nil
}

func (f *fakeSteam) GetUserLevel(ctx context.Context, id string, opts ...steam.RequestOption) (int, error) {
	f.record(id, 0, opts)
	return -1, f.err
}

func (f *fakeSteam) GetPlayerAchievements(ctx context.Context, id string, appID uint32, onlyAchieved bool, opts ...steam.RequestOption) ([]steam.PlayerAchievement, error) {
	f.record(id, appID, opts)
	if appID == 0 {
		return nil, steam.ErrAppIDNotProvided
	}
	return []steam.PlayerAchievement{{APIName: "ACH_WIN", Achieved: 1}}, f.err
}

func (f *fakeSteam) GetNewsForApp(ctx context.Context, appID uint32, count, maxLength int, opts ...steam.RequestOption) ([]steam.NewsItem, error) {
	f.record("", appID, opts)
	f.count, f.limit = count, maxLength
	return []steam.NewsItem{{GID: "1", Title: "Patch"}}, f.err
}

func (f *fakeSteam) GetGlobalStatsForGame(ctx context.Context, appID uint32, count int, names []string, opts ...steam.RequestOption) (map[string]steam.GlobalStat, error) {
	f.record("", appID, opts)
	f.count, f.names = count, names
	return map[string]steam.GlobalStat{"global.map.emp_isle": {Total: "1234"}}, f.err
}

func (f *fakeSteam) GetAppInfo(ctx context.Context, appID uint32, opts ...steam.RequestOption) (*steam.AppDetails, error) {
	f.record("", appID, opts)
	if f.err != nil {
		return nil, f.err
	}
	return &steam.AppDetails{Name: "Team Fortress 2", Data: json.RawMessage(`{"name":"Team Fortress 2","extra":true}`)}, nil
}

func (f *fakeSteam) GetServerList(ctx context.Context, filter string, limit int, opts ...steam.RequestOption) ([]steam.Server, error) {
	f.filter, f.limit = filter, limit
	if filter == "" {
		return nil, steam.ErrFilterNotProvided
	}
	return []steam.Server{{Addr: "1.2.3.4:27015"}}, nil
}

func (f *fakeSteam) RateLimitStatus() ratelimit.Status {
	return ratelimit.Status{Limited: true, MinutesSince: 5, MinutesLeft: 55}
}

func (f *fakeSteam) RequestCount() ratelimit.RequestCount {
	return ratelimit.RequestCount{Count: 42}
}

func (f *fakeSteam) RetryWindow() time.Duration { return time.Hour }

func (f *fakeSteam) BreakerStats() []circuitbreaker.Stats {
	return []circuitbreaker.Stats{{Name: "api.steampowered.com", State: "closed"}}
}

func (f *fakeSteam) CacheEnabled() bool { return true }

func serve(t *testing.T, backend Backend, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	New(backend).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestResolve(t *testing.T) {
	fake := &fakeSteam{}
	rec := serve(t, fake, "/v1/resolve/pho3nix90")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["steamid"] != pho3niX90 {
		t.Errorf("unexpected body %v", body)
	}
	if fake.lastID != "pho3nix90" {
		t.Errorf("expected id passed through, got %q", fake.lastID)
	}
}

func TestPlayer_RefreshOption(t *testing.T) {
	fake := &fakeSteam{}

	serve(t, fake, "/v1/players/"+pho3niX90)
	if fake.lastOpts != 0 {
		t.Errorf("expected no options, got %d", fake.lastOpts)
	}

	serve(t, fake, "/v1/players/"+pho3niX90+"?refresh=true")
	if fake.lastOpts != 1 {
		t.Errorf("expected the force refresh option, got %d options", fake.lastOpts)
	}
}

func TestBans_IDList(t *testing.T) {
	fake := &fakeSteam{}
	rec := serve(t, fake, "/v1/bans?ids=1,2&ids=3")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fmt.Sprint(fake.lastIDs) != "[1 2 3]" {
		t.Errorf("unexpected ids %v", fake.lastIDs)
	}

	rec = serve(t, fake, "/v1/bans")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without ids, got %d", rec.Code)
	}
}

func TestLevel_PrivateProfile(t *testing.T) {
	rec := serve(t, &fakeSteam{}, "/v1/players/"+pho3niX90+"/level")

	var body map[string]int
	decodeBody(t, rec, &body)
	if body["player_level"] != -1 {
		t.Errorf("expected -1, got %v", body)
	}
}

func TestAppIDParsing(t *testing.T) {
	tests := []struct {
		target string
		code   int
	}{
		{"/v1/players/" + pho3niX90 + "/achievements/440", http.StatusOK},
		{"/v1/players/" + pho3niX90 + "/achievements/tf2", http.StatusBadRequest},
		{"/v1/players/" + pho3niX90 + "/achievements/-1", http.StatusBadRequest},
		{"/v1/players/" + pho3niX90 + "/achievements/0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if rec := serve(t, &fakeSteam{}, tt.target); rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body)
			}
		})
	}
}

func TestAppIDNotProvidedMessage(t *testing.T) {
	rec := serve(t, &fakeSteam{}, "/v1/players/"+pho3niX90+"/achievements/0")

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["message"] != "AppID not provided." || body["error"] != "invalid_request" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestNews_QueryParams(t *testing.T) {
	fake := &fakeSteam{}
	rec := serve(t, fake, "/v1/apps/440/news?count=5&max_length=100")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.lastApp != 440 || fake.count != 5 || fake.limit != 100 {
		t.Errorf("unexpected call app=%d count=%d max=%d", fake.lastApp, fake.count, fake.limit)
	}

	if rec := serve(t, fake, "/v1/apps/440/news?count=lots"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-numeric count, got %d", rec.Code)
	}
}

func TestGlobalStats_CountDefaultsToNames(t *testing.T) {
	fake := &fakeSteam{}
	serve(t, fake, "/v1/apps/17740/stats?name=global.map.emp_isle&name=global.map.emp_urban")

	if fake.count != 2 || len(fake.names) != 2 {
		t.Errorf("expected two names and count 2, got %d %v", fake.count, fake.names)
	}
}

func TestApp_ReturnsStorePayload(t *testing.T) {
	rec := serve(t, &fakeSteam{}, "/v1/apps/440")

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["extra"] != true {
		t.Errorf("expected the raw store payload, got %v", body)
	}
}

func TestServers(t *testing.T) {
	fake := &fakeSteam{}
	rec := serve(t, fake, `/v1/servers?filter=%5Cappid%5C730&limit=10`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.filter != `\appid\730` || fake.limit != 10 {
		t.Errorf("unexpected call filter=%q limit=%d", fake.filter, fake.limit)
	}

	if rec := serve(t, fake, "/v1/servers"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without filter, got %d", rec.Code)
	}
}

func TestGateway(t *testing.T) {
	rec := serve(t, &fakeSteam{}, "/v1/gateway")

	var body GatewayStatus
	decodeBody(t, rec, &body)
	if !body.RateLimit.Limited || body.RateLimit.MinutesLeft != 55 {
		t.Errorf("unexpected rate limit %+v", body.RateLimit)
	}
	if body.Requests.Count != 42 || body.RetryWindowMinutes != 60 || !body.CacheEnabled {
		t.Errorf("unexpected status %+v", body)
	}
	if len(body.CircuitBreakers) != 1 {
		t.Errorf("expected one breaker, got %v", body.CircuitBreakers)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		code       int
		errCode    string
		retryAfter string
	}{
		{"vanity not found", steam.ErrIDNotFound, http.StatusNotFound, "not_found", ""},
		{"private profile", fmt.Errorf("%w: %w", steam.ErrProfileNotFound, &steam.StatusError{StatusCode: 401}), http.StatusNotFound, "not_found", ""},
		{"invalid identifier", steam.ErrIDNotProvided, http.StatusBadRequest, "invalid_request", ""},
		{"gate", &steam.RateLimitError{MinutesLeft: 6}, http.StatusTooManyRequests, "rate_limited", "360"},
		{"throttled", &steam.RateLimitError{Throttled: true, MinutesLeft: 60}, http.StatusTooManyRequests, "rate_limited", "3600"},
		{"circuit open", fmt.Errorf("steam: %w", steam.ErrCircuitOpen), http.StatusServiceUnavailable, "upstream_unavailable", ""},
		{"status", &steam.StatusError{StatusCode: 500}, http.StatusBadGateway, "upstream_error", ""},
		{"invalid json", steam.ErrInvalidJSON, http.StatusBadGateway, "upstream_error", ""},
		{"timeout", fmt.Errorf("get: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream_timeout", ""},
		{"transport", errors.New("connection refused"), http.StatusBadGateway, "upstream_error", ""},
		{"news timeout", fmt.Errorf("%w: %w", steam.ErrGameNewsNotFound, context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream_timeout", ""},
		{"stats outage", fmt.Errorf("%w: %w", steam.ErrProfileNotFound, &steam.StatusError{StatusCode: 503}), http.StatusBadGateway, "upstream_error", ""},
		{"achievements transport", fmt.Errorf("%w: %w", steam.ErrGameNotFound, &url.Error{Op: "Get", URL: "http://steam", Err: errors.New("connection refused")}), http.StatusBadGateway, "upstream_error", ""},
		{"client timeout", fmt.Errorf("%w: %w", steam.ErrGameNotFound, &url.Error{Op: "Get", URL: "http://steam", Err: timeoutError{}}), http.StatusGatewayTimeout, "upstream_timeout", ""},
		{"empty payload", fmt.Errorf("%w: %w", steam.ErrGameNotFound, steam.ErrUnexpectedResponse), http.StatusNotFound, "not_found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeSteam{err: tt.err}, "/v1/players/"+pho3niX90)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.retryAfter {
				t.Errorf("expected Retry-After %q, got %q", tt.retryAfter, got)
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if body["error"] != tt.errCode {
				t.Errorf("expected error code %s, got %v", tt.errCode, body)
			}
		})
	}
}

func TestRegister_AppliesMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	var seen []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.Pattern)
			next.ServeHTTP(w, r)
		})
	}
	New(&fakeSteam{}).Register(mux, mw)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/gateway", nil))
	if len(seen) != 1 || seen[0] != "GET /v1/gateway" {
		t.Errorf("expected middleware to see the route pattern, got %v", seen)
	}
}
