// Package normalize folds Vietnamese text to a lower-case, accent-free form
// so substring and keyword matching work regardless of diacritics.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningMarks covers U+0300–U+036F, the block NFD decomposition places
// Vietnamese tone and vowel marks into.
var combiningMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

var folder = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(combiningMarks)),
	norm.NFC,
)

// Text lower-cases the input, decomposes it (NFD), strips combining marks and
// maps đ to d. The result is idempotent: Text(Text(s)) == Text(s). Empty
// input returns "".
func Text(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	folded, _, err := transform.String(folder, value)
	if err != nil {
		// Fold errors only occur on invalid UTF-8; fall back to the
		// lower-cased input so search still sees something usable.
		folded = value
	}
	return strings.ReplaceAll(folded, "đ", "d")
}

// Contains reports whether haystack contains needle after both sides are
// folded. A blank needle never matches.
func Contains(haystack, needle string) bool {
	target := Text(needle)
	if target == "" {
		return false
	}
	return strings.Contains(Text(haystack), target)
}
