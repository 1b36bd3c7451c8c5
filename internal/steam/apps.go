package steam

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultNewsCount     = 3
	defaultNewsMaxLength = 300
)

// GetNewsForApp returns the latest news of appID. count and maxLength fall
// back to 3 items of 300 characters when not positive.
func (c *Client) GetNewsForApp(ctx context.Context, appID uint32, count, maxLength int, opts ...RequestOption) ([]NewsItem, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}
	if count <= 0 {
		count = defaultNewsCount
	}
	if maxLength <= 0 {
		maxLength = defaultNewsMaxLength
	}

	var resp struct {
		AppNews *struct {
			AppID     int        `json:"appid"`
			NewsItems []NewsItem `json:"newsitems"`
		} `json:"appnews"`
	}
	params := url.Values{
		"appid":     {appIDString(appID)},
		"count":     {strconv.Itoa(count)},
		"maxlength": {strconv.Itoa(maxLength)},
		"format":    {"json"},
	}
	if err := c.getJSON(ctx, "ISteamNews/GetNewsForApp/v0002", params, &resp, opts); err != nil {
		return nil, notFound(ErrGameNewsNotFound, err)
	}
	if resp.AppNews == nil {
		return nil, ErrGameNewsNotFound
	}
	return resp.AppNews.NewsItems, nil
}

// GetAppList returns every app known to Steam. The response is several
// megabytes; callers usually pass WithCacheTTL.
func (c *Client) GetAppList(ctx context.Context, opts ...RequestOption) ([]App, error) {
	var resp struct {
		AppList struct {
			Apps []App `json:"apps"`
		} `json:"applist"`
	}
	if err := c.getJSON(ctx, "ISteamApps/GetAppList/v2", nil, &resp, opts); err != nil {
		return nil, err
	}
	return resp.AppList.Apps, nil
}

// GetAppInfo returns store details of appID. The store API takes no key
// and is not counted against the Web API quota.
func (c *Client) GetAppInfo(ctx context.Context, appID uint32, opts ...RequestOption) (*AppDetails, error) {
	if appID == 0 {
		return nil, ErrAppIDNotProvided
	}

	id := appIDString(appID)
	body, err := c.do(ctx, target{
		base:     c.storeURL,
		endpoint: "api/appdetails?" + url.Values{"appids": {id}}.Encode(),
	}, applyOptions(opts))
	if err != nil {
		return nil, err
	}

	var resp map[string]struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := decode(body, &resp); err != nil {
		return nil, err
	}
	entry, ok := resp[id]
	if !ok || !entry.Success || len(entry.Data) == 0 {
		return nil, ErrAppNotFound
	}

	var details AppDetails
	if err := decode(entry.Data, &details); err != nil {
		return nil, err
	}
	details.Data = entry.Data
	return &details, nil
}

// GetServerList returns game servers matching filter, a Steam master
// server filter such as `\appid\730`. limit is sent when positive.
func (c *Client) GetServerList(ctx context.Context, filter string, limit int, opts ...RequestOption) ([]Server, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return nil, ErrFilterNotProvided
	}

	params := url.Values{"filter": {filter}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Response struct {
			Servers []Server `json:"servers"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, "IGameServersService/GetServerList/v1", params, &resp, opts); err != nil {
		return nil, err
	}
	if len(resp.Response.Servers) == 0 {
		return nil, ErrInvalidResponse
	}
	return resp.Response.Servers, nil
}
