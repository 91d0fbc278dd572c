// Package textfold normalises free text for keyword matching. Clinical notes
// arrive with inconsistent casing and accents ("Diabetes", "diabétes",
// "RIÑÓN"), so matching is always done on the folded form.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s, strips diacritics and collapses runs of whitespace.
func Fold(s string) string {
	// transform.Chain keeps internal state, so a fresh chain is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// ContainsAny reports whether the folded text contains any of the folded keywords.
func ContainsAny(text string, keywords ...string) bool {
	folded := Fold(text)
	if folded == "" {
		return false
	}
	for _, kw := range keywords {
		if k := Fold(kw); k != "" && strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// Equal compares two strings after folding.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
