package security

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const maxNameLength = 64

var (
	htmlPolicy    = bluemonday.StrictPolicy()
	nameCharRegex = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
)

// SanitizeString removes potentially dangerous characters
func SanitizeString(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Limit length
	if len(input) > 1000 {
		input = input[:1000]
	}

	return input
}

// SanitizeHTML removes all HTML tags
func SanitizeHTML(input string) string {
	return htmlPolicy.Sanitize(input)
}

// SanitizeName reduces a chat username to letters, digits and underscores
// for use in team names. It returns "" when nothing usable remains.
func SanitizeName(input string) string {
	input = html.UnescapeString(SanitizeHTML(SanitizeString(input)))
	input = strings.TrimPrefix(input, "@")
	input = nameCharRegex.ReplaceAllString(input, "")

	runes := []rune(input)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	return string(runes)
}
