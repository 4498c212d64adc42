// Package phone finds and compares phone numbers written in free text.
package phone

import (
	"regexp"
	"strings"
)

// patterns are tried in priority order; the first family with any match wins,
// even if a lower-priority family matches earlier in the text.
var patterns = []*regexp.Regexp{
	// 555-123-4567, 555.123.4567
	regexp.MustCompile(`\b\d{3}[-.]\d{3}[-.]\d{4}\b`),
	// (555) 123-4567
	regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}\b`),
	// 5551234567
	regexp.MustCompile(`\b\d{10}\b`),
}

// Extract returns the first phone number substring found in text.
func Extract(text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

// Normalize strips every non-digit character.
func Normalize(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether two phone strings normalize to the same non-empty digits.
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}
