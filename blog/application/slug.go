package application

import (
	"strings"
	"unicode"
)

// Slugify derives a URL-safe slug from a title: lowercase, whitespace
// collapsed to single hyphens, everything outside [a-z0-9-] stripped, runs
// of hyphens collapsed, leading and trailing hyphens trimmed.
//
// Slugify is idempotent: applying it to an already-valid slug returns the
// slug unchanged.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingHyphen = false
		case unicode.IsSpace(r), r == '-':
			pendingHyphen = true
		}
	}

	return b.String()
}
