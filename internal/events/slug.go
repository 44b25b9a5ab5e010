package events

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Slugify derives a URL slug from a title: lowercase, runs of
// non-alphanumerics collapsed to single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "event"
	}
	if len(slug) > 80 {
		// Back up to a rune boundary so the cut never leaves invalid UTF-8.
		cut := 80
		for cut > 0 && !utf8.RuneStart(slug[cut]) {
			cut--
		}
		slug = strings.Trim(slug[:cut], "-")
	}
	return slug
}

// uniquify appends a short random suffix after a slug collision.
func uniquify(slug string) string {
	return slug + "-" + uuid.New().String()[:8]
}
