package services

import (
	"regexp"
	"strings"
)

// Length limits applied when sanitizing free text
const (
	DefaultMaxLength     = 200
	TicketLinkMaxLength  = 500
	DescriptionMaxLength = 1000
)

var markupTag = regexp.MustCompile(`<[^>]*>`)

// SanitizeString strips markup tags, trims whitespace and truncates to maxLen characters.
// A non-positive maxLen uses DefaultMaxLength.
func SanitizeString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}

	s = strings.TrimSpace(markupTag.ReplaceAllString(s, ""))

	runes := []rune(s)
	if len(runes) > maxLen {
		s = strings.TrimSpace(string(runes[:maxLen]))
	}
	return s
}
