package validators

import (
	"strings"
	"unicode"
)

// Length caps for free text coming from table devices and the staff dashboard.
const (
	MaxNameLen    = 120
	MaxMessageLen = 500
	MaxNotesLen   = 1000
)

// SanitizeText trims input, drops control characters other than newlines and
// cuts it to maxRunes without splitting a character.
func SanitizeText(input string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(input))
	cleaned = strings.TrimSpace(cleaned)
	if maxRunes <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxRunes {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}
