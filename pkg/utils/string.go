package utils

import "strings"

// Truncate shortens s to at most maxLen characters, appending "..." when
// anything was cut. It never splits a multi-byte character.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Preview flattens whitespace in s to single spaces and truncates it, for
// showing a chunk on one line.
func Preview(s string, maxLen int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), maxLen)
}
