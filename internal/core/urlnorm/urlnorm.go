// Package urlnorm canonicalizes external links so that link-based
// deduplication is reliable. Normalization is pure and never fails:
// malformed input degrades to a best-effort cleanup.
package urlnorm

import (
	"net/url"
	"strings"
)

// trackingPrefixes match query parameter keys by prefix.
var trackingPrefixes = []string{"utm_"}

// trackingExact match query parameter keys exactly.
var trackingExact = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"yclid":  {},
	"mc_cid": {},
	"mc_eid": {},
}

// Normalize canonicalizes a URL: trims whitespace, lower-cases the host,
// drops the fragment and tracking query parameters, and strips a single
// trailing slash. Remaining query parameters keep their relative order.
// An empty result must not be used as a merge key by callers.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return stripTrailingSlash(stripFragment(raw))
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = filterQuery(u.RawQuery)

	return stripTrailingSlash(u.String())
}

// Domain returns the lower-cased host of a URL, or "" if it cannot be parsed.
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}

// filterQuery removes tracking parameters while preserving the original
// relative order of the remaining ones. Values are left untouched, so
// path/query case and encoding survive normalization.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	var kept []string

	for _, pair := range strings.Split(rawQuery, "&") {
		key := pair
		if i := strings.Index(pair, "="); i >= 0 {
			key = pair[:i]
		}

		if isTracking(key) {
			continue
		}

		kept = append(kept, pair)
	}

	return strings.Join(kept, "&")
}

func isTracking(key string) bool {
	if _, ok := trackingExact[key]; ok {
		return true
	}

	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}

	return false
}

func stripFragment(s string) string {
	if i := strings.Index(s, "#"); i >= 0 {
		return s[:i]
	}

	return s
}

func stripTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
