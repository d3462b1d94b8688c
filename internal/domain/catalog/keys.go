package catalog

import (
	"strings"
	"unicode"
)

// ExactKey is the lower-cased, trimmed form of a name.
func ExactKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizedKey keeps only letters, digits and single spaces of the exact key.
// Punctuation is dropped without leaving a gap, so "cute  cowboy" becomes
// "cute cowboy" while "Cute-Cowboy!" becomes "cutecowboy".
func NormalizedKey(name string) string {
	var b strings.Builder
	space := false
	for _, r := range ExactKey(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	return b.String()
}
