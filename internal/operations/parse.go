package operations

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/litetable/litetable-rows/internal/datamodel"
)

type query struct {
	rowID    string
	key      string
	value    datamodel.Value
	hasValue bool
}

// parseQuery reads space separated key=value pairs. Values are URL-escaped; value= holds a
// JSON literal, object or array.
func parseQuery(input string) (*query, error) {
	parsed := &query{}

	for _, part := range strings.Fields(input) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, newError(errInvalidFormat, "%s", part)
		}

		decoded, err := url.QueryUnescape(v)
		if err != nil {
			return nil, newError(errInvalidFormat, "failed to decode %s: %v", k, err)
		}

		switch strings.TrimLeft(k, "-") {
		case "row":
			parsed.rowID = decoded
		case "key":
			parsed.key = decoded
		case "value":
			var raw any
			if err := json.Unmarshal([]byte(decoded), &raw); err != nil {
				return nil, newError(errInvalidFormat, "value is not json: %v", err)
			}
			value, err := datamodel.DecodeValue(raw)
			if err != nil {
				return nil, newError(errInvalidFormat, "value: %v", err)
			}
			parsed.value = value
			parsed.hasValue = true
		default:
			return nil, newError(errUnknownParameter, "%s", k)
		}
	}

	return parsed, nil
}

func (q *query) requireRow() error {
	if q.rowID == "" {
		return newError(errMissingKey, "row is required")
	}
	return nil
}

func (q *query) requireColumn(withValue bool) error {
	if err := q.requireRow(); err != nil {
		return err
	}
	if q.key == "" {
		return newError(errInvalidFormat, "key is required")
	}
	if withValue && !q.hasValue {
		return newError(errInvalidFormat, "value is required")
	}
	return nil
}
