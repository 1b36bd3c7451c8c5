package api

import (
	"net/http"
)

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	steamID, err := h.steam.ResolveID(r.Context(), r.PathValue("id"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, map[string]string{"steamid": steamID})
}

func (h *Handler) player(w http.ResponseWriter, r *http.Request) {
	summary, err := h.steam.GetPlayerSummary(r.Context(), r.PathValue("id"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, summary)
}

func (h *Handler) players(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.steam.GetPlayersSummary(r.Context(), queryList(r, "ids"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, summaries)
}

func (h *Handler) playerBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.steam.GetPlayerBans(r.Context(), r.PathValue("id"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, bans)
}

func (h *Handler) bans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.steam.GetPlayersBans(r.Context(), queryList(r, "ids"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, bans)
}

func (h *Handler) ownedGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.steam.GetOwnedGames(r.Context(), r.PathValue("id"),
		queryBool(r, "include_free"), queryBool(r, "include_appinfo"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, games)
}

func (h *Handler) recentGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.steam.GetRecentlyPlayedGames(r.Context(), r.PathValue("id"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, games)
}

func (h *Handler) friends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.steam.GetFriendList(r.Context(), r.PathValue("id"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, friends)
}

// level answers -1 for private profiles, like the client.
func (h *Handler) level(w http.ResponseWriter, r *http.Request) {
	level, err := h.steam.GetUserLevel(r.Context(), r.PathValue("id"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, map[string]int{"player_level": level})
}

func (h *Handler) badges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.steam.GetUserBadges(r.Context(), r.PathValue("id"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, badges)
}

func (h *Handler) playerAchievements(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	achievements, err := h.steam.GetPlayerAchievements(r.Context(), r.PathValue("id"), app,
		queryBool(r, "only_achieved"), requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, achievements)
}

func (h *Handler) playerStats(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	stats, err := h.steam.GetUserStatsForGame(r.Context(), r.PathValue("id"), app, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, stats)
}

func (h *Handler) sharedGame(w http.ResponseWriter, r *http.Request) {
	app, ok := appID(w, r)
	if !ok {
		return
	}
	lender, err := h.steam.IsPlayingSharedGame(r.Context(), r.PathValue("id"), app, requestOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, map[string]string{"lender_steamid": lender})
}
