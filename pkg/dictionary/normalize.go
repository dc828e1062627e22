package dictionary

import (
	"strings"

	"golang.org/x/text/width"
)

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// Normalize prepares a surface form for lookup: surrounding whitespace is
// stripped and half-width kana / full-width latin are folded to their
// canonical width.
func Normalize(s string) string {
	return width.Fold.String(strings.TrimSpace(s))
}

// NormalizeReading prepares a reading for comparison: width folding plus
// katakana-to-hiragana conversion, so カタカナ and かたかな compare equal.
func NormalizeReading(s string) string {
	return ToHiragana(Normalize(s))
}
