package steam

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// globalStatsNotFound is the GetGlobalStatsForGame result code for
// unknown games or stat names.
const globalStatsNotFound = 20

// GetPlayerAchievements lists a player's achievements for appID. With
// onlyAchieved set, locked achievements are dropped.
func (c *Client) GetPlayerAchievements(ctx context.Context, id string, appID uint32, onlyAchieved bool, opts ...RequestOption) ([]PlayerAchievement, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	var resp struct {
		PlayerStats struct {
			Success      bool                `json:"success"`
			Achievements []PlayerAchievement `json:"achievements"`
		} `json:"playerstats"`
	}
	params := url.Values{"steamid": {steamID}, "appid": {appIDString(appID)}}
	if err := c.getJSON(ctx, "ISteamUserStats/GetPlayerAchievements/v0001", params, &resp, opts); err != nil {
		return nil, notFound(ErrProfileNotFound, err)
	}
	if !resp.PlayerStats.Success {
		return nil, ErrProfileNotFound
	}

	achievements := resp.PlayerStats.Achievements
	if onlyAchieved {
		unlocked := achievements[:0:0]
		for _, a := range achievements {
			if a.Achieved == 1 {
				unlocked = append(unlocked, a)
			}
		}
		achievements = unlocked
	}
	return achievements, nil
}

// GetUserStatsForGame returns a player's stats for appID.
func (c *Client) GetUserStatsForGame(ctx context.Context, id string, appID uint32, opts ...RequestOption) (*UserStats, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}
	steamID, err := c.ResolveID(ctx, id, opts...)
	if err != nil {
		return nil, err
	}

	var resp struct {
		PlayerStats *UserStats `json:"playerstats"`
	}
	params := url.Values{"steamid": {steamID}, "appid": {appIDString(appID)}}
	if err := c.getJSON(ctx, "ISteamUserStats/GetUserStatsForGame/v0002", params, &resp, opts); err != nil {
		return nil, notFound(ErrProfileNotFound, err)
	}
	if resp.PlayerStats == nil {
		return nil, ErrProfileNotFound
	}
	return resp.PlayerStats, nil
}

// GetGlobalAchievementPercentagesForApp returns the unlock rate of every
// achievement of appID.
func (c *Client) GetGlobalAchievementPercentagesForApp(ctx context.Context, appID uint32, opts ...RequestOption) ([]AchievementPercentage, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}

	var resp struct {
		AchievementPercentages *struct {
			Achievements []AchievementPercentage `json:"achievements"`
		} `json:"achievementpercentages"`
	}
	params := url.Values{"gameid": {appIDString(appID)}, "format": {"json"}}
	if err := c.getJSON(ctx, "ISteamUserStats/GetGlobalAchievementPercentagesForApp/v0002", params, &resp, opts); err != nil {
		return nil, notFound(ErrGameNotFound, err)
	}
	if resp.AchievementPercentages == nil || len(resp.AchievementPercentages.Achievements) == 0 {
		return nil, ErrGameNotFound
	}
	return resp.AchievementPercentages.Achievements, nil
}

// GetGlobalStatsForGame returns the aggregated totals of the named stats.
// count is the number of names Steam should read and must be positive.
func (c *Client) GetGlobalStatsForGame(ctx context.Context, appID uint32, count int, names []string, opts ...RequestOption) (map[string]GlobalStat, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if len(names) == 0 {
		return nil, ErrNamesNotProvided
	}

	params := url.Values{
		"appid":  {appIDString(appID)},
		"count":  {strconv.Itoa(count)},
		"format": {"json"},
	}
	for i, name := range names {
		params.Set("name["+strconv.Itoa(i)+"]", name)
	}

	var resp struct {
		Response struct {
			Result      int                   `json:"result"`
			GlobalStats map[string]GlobalStat `json:"globalstats"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, "ISteamUserStats/GetGlobalStatsForGame/v0001", params, &resp, opts); err != nil {
		return nil, err
	}
	if resp.Response.Result == globalStatsNotFound || len(resp.Response.GlobalStats) == 0 {
		return nil, ErrGameNotFound
	}
	return resp.Response.GlobalStats, nil
}

// GetSchemaForGame returns the stat and achievement definitions of appID.
func (c *Client) GetSchemaForGame(ctx context.Context, appID uint32, opts ...RequestOption) (*GameSchema, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}

	var resp struct {
		Game *GameSchema `json:"game"`
	}
	if err := c.getJSON(ctx, "ISteamUserStats/GetSchemaForGame/v2", url.Values{"appid": {appIDString(appID)}}, &resp, opts); err != nil {
		return nil, err
	}
	if resp.Game == nil {
		return nil, ErrGameNotFound
	}
	return resp.Game, nil
}

// GetNumberOfCurrentPlayers returns how many players are in appID now.
func (c *Client) GetNumberOfCurrentPlayers(ctx context.Context, appID uint32, opts ...RequestOption) (*CurrentPlayers, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}

	var resp struct {
		Response json.RawMessage `json:"response"`
	}
	if err := c.getJSON(ctx, "ISteamUserStats/GetNumberOfCurrentPlayers/v1", url.Values{"appid": {appIDString(appID)}}, &resp, opts); err != nil {
		return nil, err
	}
	if isEmptyObject(resp.Response) {
		return nil, ErrInvalidResponse
	}

	var players CurrentPlayers
	if err := decode(resp.Response, &players); err != nil {
		return nil, err
	}
	return &players, nil
}
