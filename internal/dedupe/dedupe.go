// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe implements keyed merge-and-deduplicate, the one shape the
// pipeline repeats for resources, examples, scraped content, and
// recommendations. See docs/ARCHITECTURE.md § Deduplication.
package dedupe

import (
	"net/url"
	"strings"
	"unicode"
)

// Merge appends items from src into dst, deduplicating by keyFn. When a key
// collides, mergeFn reconciles the existing element with the incoming one in
// place. Items whose key is empty are always appended. The operation is
// idempotent: merging the same src twice yields the same dst.
//
// mergeFn may be nil, in which case the first occurrence wins unchanged.
func Merge[T any](dst, src []T, keyFn func(T) string, mergeFn func(*T, T)) []T {
	seen := make(map[string]int, len(dst))
	for i, item := range dst {
		if k := keyFn(item); k != "" {
			seen[k] = i
		}
	}
	for _, item := range src {
		k := keyFn(item)
		if k != "" {
			if idx, ok := seen[k]; ok {
				if mergeFn != nil {
					mergeFn(&dst[idx], item)
				}
				continue
			}
			seen[k] = len(dst)
		}
		dst = append(dst, item)
	}
	return dst
}

// NormalizeURL canonicalizes a URL for dedup keying: it prefixes "https://"
// when no scheme is present, lowercases host, and strips trailing slashes
// and fragments. A URL that still fails to parse as absolute returns
// ok=false; callers decide whether to drop or log it.
func NormalizeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", false
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String(), true
}

// NormalizeTitle returns a lowercased, punctuation-stripped version of the
// title with collapsed whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
