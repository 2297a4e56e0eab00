package conduit

import (
	"context"

	"github.com/tidwall/gjson"
)

// LookupNames resolves object PHIDs to their short names (user names for users).
// Unknown PHIDs are omitted from the result.
func (c *Client) LookupNames(ctx context.Context, phids []string) (map[string]string, error) {
	names := make(map[string]string, len(phids))
	if len(phids) == 0 {
		return names, nil
	}

	result, err := c.call(ctx, "phid.query", map[string]any{"phids": phids})
	if err != nil {
		return nil, err
	}

	result.ForEach(func(key, value gjson.Result) bool {
		name := value.Get("name").String()
		if name == "" {
			name = value.Get("fullName").String()
		}
		if name != "" {
			names[key.String()] = name
		}
		return true
	})

	return names, nil
}
