package normalize

import (
	"errors"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

var errNotEpoch = errors.New("not an epoch timestamp")

// parseEpoch reads integer epoch seconds sent either as a JSON number or a numeric string.
func parseEpoch(value gjson.Result) (time.Time, error) {
	switch value.Type {
	case gjson.Number:
		return time.Unix(value.Int(), 0).UTC(), nil
	case gjson.String:
		seconds, err := strconv.ParseInt(value.Str, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(seconds, 0).UTC(), nil
	default:
		return time.Time{}, errNotEpoch
	}
}
