// Package api exposes the Steam client over a small JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/circuitbreaker"
	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/metrics"
	"github.com/maltehedderich/steam-api-go/internal/middleware"
	"github.com/maltehedderich/steam-api-go/internal/ratelimit"
	"github.com/maltehedderich/steam-api-go/internal/steam"
)

// Backend is the part of *steam.Client the API serves.
type Backend interface {
	ResolveID(ctx context.Context, id string, opts ...steam.RequestOption) (string, error)

	GetPlayerSummary(ctx context.Context, id string, opts ...steam.RequestOption) (*steam.PlayerSummary, error)
	GetPlayersSummary(ctx context.Context, ids []string, opts ...steam.RequestOption) ([]steam.PlayerSummary, error)
	GetOwnedGames(ctx context.Context, id string, includeFreeGames, includeAppInfo bool, opts ...steam.RequestOption) ([]steam.OwnedGame, error)
	GetRecentlyPlayedGames(ctx context.Context, id string, opts ...steam.RequestOption) ([]steam.PlayedGame, error)
	GetPlayerBans(ctx context.Context, id string, opts ...steam.RequestOption) (*steam.PlayerBans, error)
	GetPlayersBans(ctx context.Context, ids []string, opts ...steam.RequestOption) ([]steam.PlayerBans, error)
	GetFriendList(ctx context.Context, id string, opts ...steam.RequestOption) ([]steam.Friend, error)
	GetUserLevel(ctx context.Context, id string, opts ...steam.RequestOption) (int, error)
	GetUserBadges(ctx context.Context, id string, opts ...steam.RequestOption) (*steam.UserBadges, error)
	IsPlayingSharedGame(ctx context.Context, id string, appID uint32, opts ...steam.RequestOption) (string, error)

	GetPlayerAchievements(ctx context.Context, id string, appID uint32, onlyAchieved bool, opts ...steam.RequestOption) ([]steam.PlayerAchievement, error)
	GetUserStatsForGame(ctx context.Context, id string, appID uint32, opts ...steam.RequestOption) (*steam.UserStats, error)
	GetGlobalAchievementPercentagesForApp(ctx context.Context, appID uint32, opts ...steam.RequestOption) ([]steam.AchievementPercentage, error)
	GetGlobalStatsForGame(ctx context.Context, appID uint32, count int, names []string, opts ...steam.RequestOption) (map[string]steam.GlobalStat, error)
	GetSchemaForGame(ctx context.Context, appID uint32, opts ...steam.RequestOption) (*steam.GameSchema, error)
	GetNumberOfCurrentPlayers(ctx context.Context, appID uint32, opts ...steam.RequestOption) (*steam.CurrentPlayers, error)

	GetNewsForApp(ctx context.Context, appID uint32, count, maxLength int, opts ...steam.RequestOption) ([]steam.NewsItem, error)
	GetAppList(ctx context.Context, opts ...steam.RequestOption) ([]steam.App, error)
	GetAppInfo(ctx context.Context, appID uint32, opts ...steam.RequestOption) (*steam.AppDetails, error)
	GetServerList(ctx context.Context, filter string, limit int, opts ...steam.RequestOption) ([]steam.Server, error)

	RateLimitStatus() ratelimit.Status
	RequestCount() ratelimit.RequestCount
	RetryWindow() time.Duration
	BreakerStats() []circuitbreaker.Stats
	CacheEnabled() bool
}

var _ Backend = (*steam.Client)(nil)

// Handler serves the /v1 routes.
type Handler struct {
	steam Backend
}

// New creates a Handler backed by client.
func New(client Backend) *Handler {
	return &Handler{steam: client}
}

// Register adds every route to mux. Each route records metrics under its
// pattern and then runs mws in order.
func (h *Handler) Register(mux *http.ServeMux, mws ...middleware.Middleware) {
	for pattern, fn := range h.routes() {
		chain := middleware.NewChain(metrics.Middleware(pattern)).Append(mws...)
		mux.Handle(pattern, chain.Then(fn))
	}
}

func (h *Handler) routes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"GET /v1/resolve/{id}": h.resolve,

		"GET /v1/players":                           h.players,
		"GET /v1/players/{id}":                      h.player,
		"GET /v1/players/{id}/bans":                 h.playerBans,
		"GET /v1/bans":                              h.bans,
		"GET /v1/players/{id}/games":                h.ownedGames,
		"GET /v1/players/{id}/recent":               h.recentGames,
		"GET /v1/players/{id}/friends":              h.friends,
		"GET /v1/players/{id}/level":                h.level,
		"GET /v1/players/{id}/badges":               h.badges,
		"GET /v1/players/{id}/achievements/{appid}": h.playerAchievements,
		"GET /v1/players/{id}/stats/{appid}":        h.playerStats,
		"GET /v1/players/{id}/shared/{appid}":       h.sharedGame,

		"GET /v1/apps":                      h.apps,
		"GET /v1/apps/{appid}":              h.app,
		"GET /v1/apps/{appid}/news":         h.news,
		"GET /v1/apps/{appid}/players":      h.currentPlayers,
		"GET /v1/apps/{appid}/schema":       h.schema,
		"GET /v1/apps/{appid}/achievements": h.globalAchievements,
		"GET /v1/apps/{appid}/stats":        h.globalStats,

		"GET /v1/servers": h.servers,
		"GET /v1/gateway": h.gateway,
	}
}

// requestOptions maps query parameters onto per-call options.
func requestOptions(r *http.Request) []steam.RequestOption {
	var opts []steam.RequestOption
	if queryBool(r, "refresh") {
		opts = append(opts, steam.WithForceRefresh())
	}
	return opts
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v any) {
	if err := middleware.WriteJSON(w, http.StatusOK, v); err != nil {
		logger.FromContext(r.Context(), "api").Error("failed to encode response", logger.Fields{
			"error": err.Error(),
			"path":  r.URL.Path,
		})
	}
}

// appID parses the {appid} path value. An unparsable value is reported
// as a 400 and false is returned.
func appID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := r.PathValue("appid")
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		middleware.WriteJSONError(w, r, http.StatusBadRequest, "invalid_request", "AppID must be a number")
		return 0, false
	}
	return uint32(n), true
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// queryInt returns def when the parameter is absent and false when it is
// not a number.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		middleware.WriteJSONError(w, r, http.StatusBadRequest, "invalid_request", name+" must be a number")
		return 0, false
	}
	return n, true
}

// queryList accepts both repeated and comma separated values.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
