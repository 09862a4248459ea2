package guesty

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

type queryParam struct {
	key   string
	value any
}

// encodeQuery serializes params in order. Scalars are written as strings; any
// other value is JSON-encoded first. Every value is then percent-encoded.
func encodeQuery(params []queryParam) (string, error) {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		var s string
		switch v := p.value.(type) {
		case string:
			s = v
		case bool:
			s = strconv.FormatBool(v)
		case int:
			s = strconv.Itoa(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			s = string(b)
		}
		parts = append(parts, p.key+"="+escapeComponent(s))
	}
	return strings.Join(parts, "&"), nil
}

// escapeComponent percent-encodes s, spaces included.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
