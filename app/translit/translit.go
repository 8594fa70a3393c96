// Package translit derives URL- and filesystem-safe names from post titles
// and asset labels, transliterating non-Latin scripts.
package translit

import (
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// Slugify transliterates text into a lowercase hyphenated slug, capped at
// maxLen runes. The cap never leaves a trailing hyphen.
func Slugify(text string, maxLen int) string {
	normalized := norm.NFC.String(text)
	s := slug.MakeLang(normalized, "ru")
	if maxLen > 0 && len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}
