package urlutil

import (
	"net/url"
	"strings"
)

// Slug maps a URL (or any string) to a filesystem-safe name.
//
// The mapping follows these rules:
//   - stripPrefix is removed when the input starts with it
//   - every run of characters outside [0-9A-Za-z] collapses to a single "_"
//   - the result is truncated to maxLen bytes (maxLen <= 0 disables truncation)
//
// Properties:
//   - Pure and deterministic
//   - Output contains only ASCII alphanumerics and "_"
func Slug(raw string, stripPrefix string, maxLen int) string {
	if stripPrefix != "" {
		raw = strings.TrimPrefix(raw, stripPrefix)
	}

	var b strings.Builder
	b.Grow(len(raw))
	inRun := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if isAlnumASCII(c) {
			b.WriteByte(c)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}

	slug := b.String()
	if maxLen > 0 && len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}

// IsHTTP reports whether raw is an absolute http(s) URL with a host.
func IsHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

func isAlnumASCII(c byte) bool {
	return (c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}
