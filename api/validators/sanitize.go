package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input and caps it at maxLen characters, matching the
// rune count used by the `max` validation tag. Invalid UTF-8 is dropped.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.TrimSpace(strings.ToValidUTF8(input, ""))
	if maxLen <= 0 || utf8.RuneCountInString(cleaned) <= maxLen {
		return cleaned
	}
	cut, n := 0, 0
	for i := range cleaned {
		if n == maxLen {
			cut = i
			break
		}
		n++
	}
	return strings.TrimSpace(cleaned[:cut])
}
