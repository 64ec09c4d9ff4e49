package meaning

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison form of a label.
func Normalize(label string) string {
	s := norm.NFKC.String(label)
	// Casers keep state between calls and are not shared.
	s = cases.Fold().String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '_' || r == '-':
			return ' '
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// firstNumber returns the first run of ASCII digits in s, or "".
func firstNumber(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}
