// Package phone canonicalizes free-form phone strings into a dialable
// E.164-like form.
package phone

import "strings"

// Normalize strips punctuation from a raw phone string and returns a
// best-effort E.164 number. A bare 10-digit number is assumed to be US and
// prefixed with +1; an 11-digit number starting with 1 gets a +. Anything
// else keeps its digits behind a +. Empty input maps to empty output.
// Normalize is idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	default:
		return "+" + digits
	}
}
