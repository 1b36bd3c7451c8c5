package api

import (
	"net/http"
	"time"

	"github.com/maltehedderich/steam-api-go/internal/circuitbreaker"
	"github.com/maltehedderich/steam-api-go/internal/ratelimit"
)

func (h *Handler) apps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.steam.GetAppList(r.Context(), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, apps)
}

// app returns the full store payload when one was kept.
func (h *Handler) app(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	details, err := h.steam.GetAppInfo(r.Context(), app, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(details.Data) > 0 {
		h.respond(w, r, details.Data)
		return
	}
	h.respond(w, r, details)
}

func (h *Handler) news(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	count, ok := queryInt(w, r, "count", 0)
	if !ok {
		return
	}
	maxLength, ok := queryInt(w, r, "max_length", 0)
	if !ok {
		return
	}
	news, err := h.steam.GetNewsForApp(r.Context(), app, count, maxLength, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, news)
}

func (h *Handler) currentPlayers(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	players, err := h.steam.GetNumberOfCurrentPlayers(r.Context(), app, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, players)
}

func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	schema, err := h.steam.GetSchemaForGame(r.Context(), app, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, schema)
}

func (h *Handler) globalAchievements(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	percentages, err := h.steam.GetGlobalAchievementPercentagesForApp(r.Context(), app, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, percentages)
}

func (h *Handler) globalStats(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	names := queryList(r, "name")
	count, ok := queryInt(w, r, "count", len(names))
	if !ok {
		return
	}
	stats, err := h.steam.GetGlobalStatsForGame(r.Context(), app, count, names, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, stats)
}

func (h *Handler) servers(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	servers, err := h.steam.GetServerList(r.Context(), r.URL.Query().Get("filter"), limit, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, servers)
}

// GatewayStatus reports the client's throttling state.
type GatewayStatus struct {
	RateLimit          ratelimit.Status       `json:"rate_limit"`
	Requests           ratelimit.RequestCount `json:"requests"`
	RetryWindowMinutes int                    `json:"retry_window_minutes"`
	CacheEnabled       bool                   `json:"cache_enabled"`
	CircuitBreakers    []circuitbreaker.Stats `json:"circuit_breakers,omitempty"`
}

func (h *Handler) gateway(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, GatewayStatus{
		RateLimit:          h.steam.RateLimitStatus(),
		Requests:           h.steam.RequestCount(),
		RetryWindowMinutes: int(h.steam.RetryWindow() / time.Minute),
		CacheEnabled:       h.steam.CacheEnabled(),
		CircuitBreakers:    h.steam.BreakerStats(),
	})
}
