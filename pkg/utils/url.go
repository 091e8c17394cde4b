package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string.
// This is useful for creating consistent, safe keys for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// ToAbsoluteURL resolves a possibly relative reference against base (RFC 3986).
func ToAbsoluteURL(base *url.URL, relative string) (*url.URL, error) {
	relURL, err := url.Parse(strings.TrimSpace(relative))
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(relURL), nil
}

// NormalizeURL returns the dedup key of an absolute URL: the fragment is dropped
// and a single trailing slash is stripped from the path. The root path is kept.
func NormalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	if len(n.Path) > 1 && strings.HasSuffix(n.Path, "/") {
		n.Path = strings.TrimSuffix(n.Path, "/")
		if n.RawPath != "" {
			n.RawPath = strings.TrimSuffix(n.RawPath, "/")
		}
	}
	return n.String()
}

// MatchTarget is the part of a URL that matching rules are evaluated against:
// host, path and query, without scheme or fragment.
func MatchTarget(u *url.URL) string {
	target := u.Host + u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}

// Hostname returns the host of rawURL, or "unknown" when it cannot be parsed.
func Hostname(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return parsed.Hostname()
}
