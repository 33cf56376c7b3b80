package canonical

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var spacesRe = regexp.MustCompile(`\s+`)

// CollapseSpaces collapses runs of whitespace and trims surrounding
// punctuation commonly left over by OCR token extraction.
func CollapseSpaces(v string) string {
	return strings.Trim(spacesRe.ReplaceAllString(v, " "), " ,.-")
}

var tokenRe = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeToken lowercases v and strips everything but ASCII letters and
// digits. Used for fuzzy field-name and label comparisons.
func NormalizeToken(v string) string {
	return tokenRe.ReplaceAllString(stripDiacritics(strings.ToLower(v)), "")
}

// NormalizeASCIIUpper uppercases v and strips diacritics, so that option
// texts like "MÁLAGA" and payload values like "MALAGA" compare equal.
func NormalizeASCIIUpper(v string) string {
	return stripDiacritics(strings.ToUpper(strings.TrimSpace(v)))
}

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

func stripDiacritics(v string) string {
	out, _, err := transform.String(diacriticStripper, v)
	if err != nil {
		return v
	}
	return out
}
