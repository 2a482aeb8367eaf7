// Package slug derives URL-safe ASCII slugs from arbitrary Unicode titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// hyphenRuns collapses consecutive hyphens left over after sanitization.
var hyphenRuns = regexp.MustCompile(`-{2,}`)

// Make converts a title into a lowercase hyphenated slug: accents are
// decomposed and stripped, non-alphanumeric runs collapse to a single
// hyphen, and leading/trailing hyphens are trimmed. An input with no
// usable characters yields "untitled".
func Make(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	s, _, _ := transform.String(t, title)

	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, s)

	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return "untitled"
	}
	return s
}
