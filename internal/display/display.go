// Package display holds small helpers for the fixed-width tables printed by
// the shell and the importer.
package display

import "unicode/utf8"

// Truncate shortens s to at most maxLen runes, ending in "..." when there is
// room for it. It never splits a multi-byte character.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
