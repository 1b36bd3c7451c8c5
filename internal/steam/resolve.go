package steam

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/maltehedderich/steam-api-go/internal/logger"
	"github.com/maltehedderich/steam-api-go/internal/steamid"
)

// vanityNotFound is the ResolveVanityURL success code for unknown names.
const vanityNotFound = 42

type resolveVanityResponse struct {
	Response struct {
		SteamID string `json:"steamid"`
		Success int    `json:"success"`
		Message string `json:"message"`
	} `json:"response"`
}

// ResolveID returns the 64-bit SteamID for id, which may be a 64-bit ID,
// a STEAM_X:Y:Z or [U:1:N] ID, or a vanity URL name. Only vanity names
// cost a network call.
func (c *Client) ResolveID(ctx context.Context, id string, opts ...RequestOption) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrIDNotProvided
	}

	if steamid.IsCanonical(id) {
		return id, nil
	}

	if parsed, err := steamid.Parse(id); err == nil && parsed.Valid() {
		return parsed.String64(), nil
	}

	body, err := c.Request(ctx, "ISteamUser/ResolveVanityURL/v0001?"+url.Values{"vanityurl": {id}}.Encode(), opts...)
	if err != nil {
		c.logger.WithContext(ctx).Debug("vanity lookup failed", logger.Fields{
			"vanity": id,
			"error":  err.Error(),
		})
		return "", err
	}

	var resp resolveVanityResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", ErrIDNotFound
	}
	if resp.Response.Success == vanityNotFound || resp.Response.SteamID == "" {
		return "", ErrIDNotFound
	}
	return resp.Response.SteamID, nil
}
