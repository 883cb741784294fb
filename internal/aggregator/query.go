// internal/aggregator/query.go
package aggregator

import (
	"net/url"
	"strings"

	"aggregation-gateway/internal/models"
)

// ParseQuery turns a raw query string into sub-request specs in the order the
// caller wrote them. url.Values cannot be used here because it loses order.
// Entries with an empty name or target are dropped. When a name repeats, the
// first occurrence wins and the later names are returned as duplicates.
func ParseQuery(rawQuery string) (specs []models.SubRequestSpec, duplicates []string) {
	seen := make(map[string]struct{})
	for rawQuery != "" {
		var pair string
		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if pair == "" {
			continue
		}
		rawName, rawTarget, _ := strings.Cut(pair, "=")
		name := unescape(rawName)
		target := unescape(rawTarget)
		if name == "" || target == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			duplicates = append(duplicates, name)
			continue
		}
		seen[name] = struct{}{}
		specs = append(specs, models.SubRequestSpec{Name: name, RawTarget: target})
	}
	return specs, duplicates
}

// unescape decodes a query component, keeping the raw text when it carries
// a malformed escape.
func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
