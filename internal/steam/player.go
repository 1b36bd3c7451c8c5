package steam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// GetPlayerSummary returns the profile of one player. id may be any form
// accepted by ResolveID.
func (c *Client) GetPlayerSummary(ctx context.Context, id string, opts ...RequestOption) (*PlayerSummary, error) {
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	players, err := c.playerSummaries(ctx, []string{steamID}, opts)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, ErrUnexpectedResponse
	}
	return &players[0], nil
}

// GetPlayersSummary returns the profiles of several 64-bit SteamIDs.
// Vanity names are not resolved.
func (c *Client) GetPlayersSummary(ctx context.Context, ids []string, opts ...RequestOption) ([]PlayerSummary, error) {
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		return nil, ErrIDsNotProvided
	}
	return c.playerSummaries(ctx, ids, opts)
}

func (c *Client) playerSummaries(ctx context.Context, ids []string, opts []RequestOption) ([]PlayerSummary, error) {
	var resp struct {
		Response struct {
			Players []PlayerSummary `json:"players"`
		} `json:"response"`
	}
	params := url.Values{"steamids": {strings.Join(ids, ",")}}
	if err := c.getJSON(ctx, "ISteamUser/GetPlayerSummaries/v0002", params, &resp, opts); err != nil {
		return nil, err
	}
	return resp.Response.Players, nil
}

// GetOwnedGames lists a player's library. The result is empty when the
// profile's game details are private.
func (c *Client) GetOwnedGames(ctx context.Context, id string, includeFreeGames, includeAppInfo bool, opts ...RequestOption) ([]OwnedGame, error) {
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Response struct {
			GameCount int         `json:"game_count"`
			Games     []OwnedGame `json:"games"`
		} `json:"response"`
	}
	params := url.Values{
		"steamid":                   {steamID},
		"format":                    {"json"},
		"include_played_free_games": {boolFlag(includeFreeGames)},
		"include_appinfo":           {boolFlag(includeAppInfo)},
	}
	if err := c.getJSON(ctx, "IPlayerService/GetOwnedGames/v1", params, &resp, opts); err != nil {
		return nil, err
	}
	return resp.Response.Games, nil
}

// GetRecentlyPlayedGames lists games played in the last two weeks.
func (c *Client) GetRecentlyPlayedGames(ctx context.Context, id string, opts ...RequestOption) ([]PlayedGame, error) {
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Response struct {
			TotalCount int          `json:"total_count"`
			Games      []PlayedGame `json:"games"`
		} `json:"response"`
	}
	params := url.Values{"steamid": {steamID}, "format": {"json"}}
	if err := c.getJSON(ctx, "IPlayerService/GetRecentlyPlayedGames/v0001", params, &resp, opts); err != nil {
		return nil, err
	}
	return resp.Response.Games, nil
}

// GetPlayerBans returns the ban record of one player.
func (c *Client) GetPlayerBans(ctx context.Context, id string, opts ...RequestOption) (*PlayerBans, error) {
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	bans, err := c.playerBans(ctx, []string{steamID}, opts)
	if err != nil {
		return nil, err
	}
	if len(bans) == 0 {
		return nil, ErrUnexpectedResponse
	}
	return &bans[0], nil
}

// GetPlayersBans returns the ban records of several 64-bit SteamIDs.
func (c *Client) GetPlayersBans(ctx context.Context, ids []string, opts ...RequestOption) ([]PlayerBans, error) {
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		return nil, ErrIDsNotProvided
	}
	return c.playerBans(ctx, ids, opts)
}

func (c *Client) playerBans(ctx context.Context, ids []string, opts []RequestOption) ([]PlayerBans, error) {
	var resp struct {
		Players []PlayerBans `json:"players"`
	}
	params := url.Values{"steamids": {strings.Join(ids, ",")}}
	if err := c.getJSON(ctx, "ISteamUser/GetPlayerBans/v1", params, &resp, opts); err != nil {
		return nil, err
	}
	if resp.Players == nil {
		return nil, ErrUnexpectedResponse
	}
	return resp.Players, nil
}

// GetFriendList returns a player's friends. Private profiles yield
// ErrProfileNotFound.
func (c *Client) GetFriendList(ctx context.Context, id string, opts ...RequestOption) ([]Friend, error) {
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	var resp struct {
		FriendsList *struct {
			Friends []Friend `json:"friends"`
		} `json:"friendslist"`
	}
	params := url.Values{"steamid": {steamID}, "relationship": {"friend"}}
	if err := c.getJSON(ctx, "ISteamUser/GetFriendList/v0001", params, &resp, opts); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			return nil, notFound(ErrProfileNotFound, err)
		}
		return nil, err
	}
	if resp.FriendsList == nil {
		return nil, ErrProfileNotFound
	}
	return resp.FriendsList.Friends, nil
}

// GetUserLevel returns a player's Steam level, or -1 when the profile is
// private or unknown.
func (c *Client) GetUserLevel(ctx context.Context, id string, opts ...RequestOption) (int, error) {
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return -1, err
	}

	var resp struct {
		Response struct {
			PlayerLevel *int `json:"player_level"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, "IPlayerService/GetSteamLevel/v1", url.Values{"steamid": {steamID}}, &resp, opts); err != nil {
		return -1, err
	}
	if resp.Response.PlayerLevel == nil {
		return -1, nil
	}
	return *resp.Response.PlayerLevel, nil
}

// GetUserBadges returns a player's badges and XP.
func (c *Client) GetUserBadges(ctx context.Context, id string, opts ...RequestOption) (*UserBadges, error) {
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Response json.RawMessage `json:"response"`
	}
	if err := c.getJSON(ctx, "IPlayerService/GetBadges/v1", url.Values{"steamid": {steamID}}, &resp, opts); err != nil {
		return nil, err
	}
	if isEmptyObject(resp.Response) {
		return nil, ErrProfileNotFound
	}

	var badges UserBadges
	if err := decode(resp.Response, &badges); err != nil {
		return nil, err
	}
	return &badges, nil
}

// IsPlayingSharedGame returns the SteamID of the account lending appID to
// the player, or "0" when the player owns the game.
func (c *Client) IsPlayingSharedGame(ctx context.Context, id string, appID uint32, opts ...RequestOption) (string, error) {
	if appID == 0 {
		return "", ErrAppIDNotProvided
	}
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return "", err
	}

	var resp struct {
		Response struct {
			Success       *bool  `json:"success"`
			LenderSteamID string `json:"lender_steamid"`
		} `json:"response"`
	}
	params := url.Values{"steamid": {steamID}, "appid_playing": {appIDString(appID)}}
	if err := c.getJSON(ctx, "IPlayerService/IsPlayingSharedGame/v0001", params, &resp, opts); err != nil {
		return "", err
	}
	r := resp.Response
	if (r.Success != nil && !*r.Success) || r.LenderSteamID == "" {
		return "", ErrProfileNotFound
	}
	return r.LenderSteamID, nil
}
