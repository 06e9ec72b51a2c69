package telemetry

import (
	"encoding/json"
	"fmt"
)

// serializeValue renders a payload value for span attachment. Strings pass
// through untouched, nil and empty composites render as the empty string so
// callers can omit the attribute, and everything else is JSON encoded.
func serializeValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case error:
		return t.Error(), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s := string(b)
	switch s {
	case "null", "{}", "[]":
		return "", nil
	}
	return s, nil
}

// serialize renders v through serializeValue. A value that cannot be JSON
// encoded is reported and rendered with fmt instead of losing the event.
func (c *Correlator) serialize(v any) string {
	s, err := serializeValue(v)
	if err != nil {
		c.logger.Warn("payload serialization failed, using fallback rendering",
			"error", err,
			"type", fmt.Sprintf("%T", v),
		)
		return fmt.Sprintf("%v", v)
	}
	return s
}
