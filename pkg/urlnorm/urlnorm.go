// Package urlnorm canonicalizes platform URLs before resolution so that the
// same content always maps to the same queue entry.
package urlnorm

import (
	"net/url"
	"strings"
)

const (
	shortHost = "youtu.be"
	mainHost  = "youtube.com"
)

// allowedParams are the only query parameters that change what a main-domain
// URL identifies. Everything else is tracking noise and gets dropped.
var allowedParams = map[string]bool{
	"v":    true,
	"list": true,
	"t":    true,
}

// Normalize canonicalizes rawURL. Short-link URLs lose their entire query
// string; main-domain URLs keep only the allowed parameters in their original
// order. URLs for other hosts, and URLs that fail to parse, are returned
// unchanged: a bad URL should surface as a resolve failure, not be eaten here.
func Normalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == shortHost:
		return u.Scheme + "://" + u.Host + u.Path
	case host == mainHost || strings.HasSuffix(host, "."+mainHost):
		u.RawQuery = filterQuery(u.RawQuery)
		u.Fragment = ""
		return u.String()
	default:
		return rawURL
	}
}

// filterQuery keeps only allowed parameters, preserving the order in which
// they first appear. url.Values would re-sort them, so split by hand.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	seen := map[string]bool{}
	for _, pair := range strings.Split(rawQuery, "&") {
		key := pair
		if i := strings.Index(pair, "="); i >= 0 {
			key = pair[:i]
		}
		if allowedParams[key] && !seen[key] {
			kept = append(kept, pair)
			seen[key] = true
		}
	}
	return strings.Join(kept, "&")
}

// IsCollection reports whether rawURL refers to a collection rather than a
// single item.
func IsCollection(rawURL string) bool {
	return strings.Contains(rawURL, "playlist")
}
