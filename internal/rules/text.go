package rules

import "strings"

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u", "Ñ", "n",
)

// Fold lower-cases, strips Spanish accents and collapses runs of whitespace.
// All keyword matching in the engine runs over folded text so that OCR output
// with inconsistent accents or casing still hits the keyword lists.
func Fold(s string) string {
	s = accentFolder.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// containsKeyword reports whether the folded haystack contains any of the
// given folded keywords as a substring.
func containsKeyword(folded string, keywords map[string]bool) bool {
	for kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}
