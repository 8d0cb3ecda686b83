package namematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize produces the canonical form used for title comparison:
// fullwidth characters narrowed, accents stripped, case folded, and
// whitespace collapsed. Provider titles mix romaji, accented romanizations,
// and fullwidth Latin from Japanese sources; comparing canonical forms
// makes "Fullmetal Alchemist" and "Ｆｕｌｌｍｅｔａｌ　Ａｌｃｈｅｍｉｓｔ" equal.
func Normalize(s string) string {
	s = width.Narrow.String(s)
	if out, _, err := transform.String(stripAccents, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
