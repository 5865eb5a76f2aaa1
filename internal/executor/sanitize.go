package executor

import (
	"fmt"
	"strings"
)

// dangerousChars are deleted from parameter values before they are
// placed in an argument vector. Sanitization is intentionally lossy: it
// deletes rather than escapes, so sanitized values do not round-trip.
const dangerousChars = "`$|&;\n\r><\\(){}"

// Sanitize coerces a value to a string, trims whitespace, and strips
// shell-significant characters. It never fails; it only degrades input.
func Sanitize(value any) string {
	if value == nil {
		return ""
	}

	s := strings.TrimSpace(fmt.Sprint(value))

	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(dangerousChars, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeAll sanitizes multiple values
func SanitizeAll(values ...any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Sanitize(v)
	}
	return out
}
