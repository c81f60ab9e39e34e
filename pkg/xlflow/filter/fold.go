package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks so that "Índice" and
// "indice" compare equal. Folding is Unicode aware, so CJK markers pass
// through unchanged.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(strings.TrimSpace(out))
}

// tokens splits folded text on anything that is not a letter or digit.
func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsMarker reports whether folded text contains the folded marker.
// Markers shorter than four runes must match a whole token, otherwise
// "toc" would match "stock".
func containsMarker(text, marker string) bool {
	if marker == "" {
		return false
	}
	if len([]rune(marker)) >= 4 || !isLatin(marker) {
		return strings.Contains(text, marker)
	}
	for _, tok := range tokens(text) {
		if tok == marker {
			return true
		}
	}
	return false
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxLatin1 && !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}
