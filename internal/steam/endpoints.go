package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// getJSON requests endpoint with params and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, v any, opts []RequestOption) error {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	body, err := c.Request(ctx, endpoint, opts...)
	if err != nil {
		return err
	}
	return decode(body, v)
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

// notFound wraps cause so callers can match both the domain error and
// the underlying gateway error.
func notFound(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// isEmptyObject reports whether raw is absent, null or {}.
func isEmptyObject(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	return len(m) == 0
}

func appIDString(appID uint32) string {
	return strconv.FormatUint(uint64(appID), 10)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// cleanIDs drops blank entries.
func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
