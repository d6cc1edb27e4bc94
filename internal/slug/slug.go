// Package slug derives URL-safe identifiers from display text.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRun   = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)
	nonWord    = regexp.MustCompile(`[^\w-]+`)
	hyphenRun  = regexp.MustCompile(`-{2,}`)
	trailingHy = regexp.MustCompile(`-$`)
)

// Slugify turns text into a lowercase, hyphen-delimited slug.
//
// The steps run in a fixed order: NFKD, lowercase, trim, whitespace runs to
// "-", drop everything outside [A-Za-z0-9_-], "_" to "-", collapse "-" runs,
// drop one trailing "-". A leading "-" is kept.
func Slugify(text string) string {
	s := norm.NFKD.String(text)
	s = strings.ToLower(s)
	s = strings.TrimFunc(s, isSpace)
	s = spaceRun.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return trailingHy.ReplaceAllString(s, "")
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
