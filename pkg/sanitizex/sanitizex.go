package sanitizex

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanSingleLine normalizes s to NFC, replaces control characters with spaces,
// trims it and collapses runs of whitespace into a single ASCII space.
func CleanSingleLine(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if r == '\u007f' || unicode.IsControl(r) || unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// QueryParam returns the cleaned first value of key.
func QueryParam(values url.Values, key string) string {
	return CleanSingleLine(values.Get(key))
}
