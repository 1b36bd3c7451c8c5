package steam

import "encoding/json"

// PlayerSummary is one entry of ISteamUser/GetPlayerSummaries.
type PlayerSummary struct {
	SteamID                  string `json:"steamid"`
	CommunityVisibilityState int    `json:"communityvisibilitystate"`
	ProfileState             int    `json:"profilestate,omitempty"`
	PersonaName              string `json:"personaname"`
	CommentPermission        int    `json:"commentpermission,omitempty"`
	ProfileURL               string `json:"profileurl"`
	Avatar                   string `json:"avatar"`
	AvatarMedium             string `json:"avatarmedium"`
	AvatarFull               string `json:"avatarfull"`
	AvatarHash               string `json:"avatarhash,omitempty"`
	LastLogoff               int64  `json:"lastlogoff,omitempty"`
	PersonaState             int    `json:"personastate"`
	PersonaStateFlags        int    `json:"personastateflags,omitempty"`
	RealName                 string `json:"realname,omitempty"`
	PrimaryClanID            string `json:"primaryclanid,omitempty"`
	TimeCreated              int64  `json:"timecreated,omitempty"`
	LocCountryCode           string `json:"loccountrycode,omitempty"`
	LocStateCode             string `json:"locstatecode,omitempty"`
	LocCityID                int    `json:"loccityid,omitempty"`
	GameID                   string `json:"gameid,omitempty"`
	GameExtraInfo            string `json:"gameextrainfo,omitempty"`
	GameServerIP             string `json:"gameserverip,omitempty"`
}

// PlayerBans is one entry of ISteamUser/GetPlayerBans. Steam uses
// PascalCase keys for this endpoint only.
type PlayerBans struct {
	SteamID          string `json:"SteamId"`
	CommunityBanned  bool   `json:"CommunityBanned"`
	VACBanned        bool   `json:"VACBanned"`
	NumberOfVACBans  int    `json:"NumberOfVACBans"`
	DaysSinceLastBan int    `json:"DaysSinceLastBan"`
	NumberOfGameBans int    `json:"NumberOfGameBans"`
	EconomyBan       string `json:"EconomyBan"`
}

type OwnedGame struct {
	AppID                    int    `json:"appid"`
	Name                     string `json:"name,omitempty"`
	PlaytimeForever          int    `json:"playtime_forever"`
	Playtime2Weeks           int    `json:"playtime_2weeks,omitempty"`
	PlaytimeWindowsForever   int    `json:"playtime_windows_forever,omitempty"`
	PlaytimeMacForever       int    `json:"playtime_mac_forever,omitempty"`
	PlaytimeLinuxForever     int    `json:"playtime_linux_forever,omitempty"`
	ImgIconURL               string `json:"img_icon_url,omitempty"`
	HasCommunityVisibleStats bool   `json:"has_community_visible_stats,omitempty"`
	RTimeLastPlayed          int64  `json:"rtime_last_played,omitempty"`
}

type PlayedGame struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	Playtime2Weeks  int    `json:"playtime_2weeks"`
	PlaytimeForever int    `json:"playtime_forever"`
	ImgIconURL      string `json:"img_icon_url,omitempty"`
}

type PlayerAchievement struct {
	APIName     string `json:"apiname"`
	Achieved    int    `json:"achieved"`
	UnlockTime  int64  `json:"unlocktime"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type UserStats struct {
	SteamID      string `json:"steamID"`
	GameName     string `json:"gameName"`
	Stats        []Stat `json:"stats"`
	Achievements []struct {
		Name     string `json:"name"`
		Achieved int    `json:"achieved"`
	} `json:"achievements,omitempty"`
}

// Stat values are integers or floats depending on the game.
type Stat struct {
	Name  string      `json:"name"`
	Value json.Number `json:"value"`
}

type Friend struct {
	SteamID      string `json:"steamid"`
	Relationship string `json:"relationship"`
	FriendSince  int64  `json:"friend_since"`
}

type Badge struct {
	BadgeID         int    `json:"badgeid"`
	AppID           int    `json:"appid,omitempty"`
	Level           int    `json:"level"`
	CompletionTime  int64  `json:"completion_time"`
	XP              int    `json:"xp"`
	Scarcity        int    `json:"scarcity"`
	CommunityItemID string `json:"communityitemid,omitempty"`
	BorderColor     int    `json:"border_color,omitempty"`
}

// UserBadges is the response of IPlayerService/GetBadges.
type UserBadges struct {
	Badges                     []Badge `json:"badges"`
	PlayerXP                   int     `json:"player_xp"`
	PlayerLevel                int     `json:"player_level"`
	PlayerXPNeededToLevelUp    int     `json:"player_xp_needed_to_level_up"`
	PlayerXPNeededCurrentLevel int     `json:"player_xp_needed_current_level"`
}

type NewsItem struct {
	GID           string `json:"gid"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	IsExternalURL bool   `json:"is_external_url"`
	Author        string `json:"author"`
	Contents      string `json:"contents"`
	FeedLabel     string `json:"feedlabel"`
	Date          int64  `json:"date"`
	FeedName      string `json:"feedname"`
	FeedType      int    `json:"feed_type"`
	AppID         int    `json:"appid"`
}

// AchievementPercentage is a global unlock rate. Steam has sent the
// percentage both as a number and as a string.
type AchievementPercentage struct {
	Name    string      `json:"name"`
	Percent json.Number `json:"percent"`
}

// GlobalStat is an aggregated stat total, sent by Steam as a string.
type GlobalStat struct {
	Total json.Number `json:"total"`
}

type GameSchema struct {
	GameName           string `json:"gameName"`
	GameVersion        string `json:"gameVersion"`
	AvailableGameStats struct {
		Stats        []SchemaStat        `json:"stats,omitempty"`
		Achievements []SchemaAchievement `json:"achievements,omitempty"`
	} `json:"availableGameStats"`
}

type SchemaStat struct {
	Name         string      `json:"name"`
	DefaultValue json.Number `json:"defaultvalue"`
	DisplayName  string      `json:"displayName"`
}

type SchemaAchievement struct {
	Name         string      `json:"name"`
	DefaultValue json.Number `json:"defaultvalue"`
	DisplayName  string      `json:"displayName"`
	Hidden       int         `json:"hidden"`
	Description  string      `json:"description,omitempty"`
	Icon         string      `json:"icon"`
	IconGray     string      `json:"icongray"`
}

type App struct {
	AppID int    `json:"appid"`
	Name  string `json:"name"`
}

// AppDetails is the data of a store appdetails entry. Data keeps the full
// payload since its shape varies between games, DLC and videos.
type AppDetails struct {
	Type             string          `json:"type"`
	Name             string          `json:"name"`
	SteamAppID       int             `json:"steam_appid"`
	IsFree           bool            `json:"is_free"`
	ShortDescription string          `json:"short_description"`
	HeaderImage      string          `json:"header_image"`
	Website          string          `json:"website,omitempty"`
	Developers       []string        `json:"developers,omitempty"`
	Publishers       []string        `json:"publishers,omitempty"`
	Platforms        map[string]bool `json:"platforms,omitempty"`
	ReleaseDate      struct {
		ComingSoon bool   `json:"coming_soon"`
		Date       string `json:"date"`
	} `json:"release_date"`
	Data json.RawMessage `json:"-"`
}

type CurrentPlayers struct {
	PlayerCount int `json:"player_count"`
	Result      int `json:"result"`
}

// Server is one entry of IGameServersService/GetServerList.
type Server struct {
	Addr       string `json:"addr"`
	GamePort   int    `json:"gameport"`
	SteamID    string `json:"steamid"`
	Name       string `json:"name"`
	AppID      int    `json:"appid"`
	GameDir    string `json:"gamedir"`
	Version    string `json:"version"`
	Product    string `json:"product"`
	Region     int    `json:"region"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Bots       int    `json:"bots"`
	Map        string `json:"map"`
	Secure     bool   `json:"secure"`
	Dedicated  bool   `json:"dedicated"`
	OS         string `json:"os"`
	GameType   string `json:"gametype"`
}
