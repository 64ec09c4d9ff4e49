package meaning

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Matcher decides whether a rule applies to a normalised label.
type Matcher interface {
	// Match is called with the output of Normalize.
	Match(normalized string) bool

	// String describes the matcher for listings and logs.
	String() string
}

type exactMatcher struct{ value string }

// Exact matches labels equal to value after normalisation.
func Exact(value string) Matcher { return exactMatcher{Normalize(value)} }

func (m exactMatcher) Match(s string) bool { return s == m.value }
func (m exactMatcher) String() string      { return fmt.Sprintf("exact(%q)", m.value) }

type prefixMatcher struct{ value string }

// Prefix matches labels starting with value after normalisation.
func Prefix(value string) Matcher { return prefixMatcher{Normalize(value)} }

func (m prefixMatcher) Match(s string) bool { return strings.HasPrefix(s, m.value) }
func (m prefixMatcher) String() string      { return fmt.Sprintf("prefix(%q)", m.value) }

type containsMatcher struct{ value string }

// Contains matches labels containing value as a substring after normalisation.
func Contains(value string) Matcher { return containsMatcher{Normalize(value)} }

func (m containsMatcher) Match(s string) bool { return strings.Contains(s, m.value) }
func (m containsMatcher) String() string      { return fmt.Sprintf("contains(%q)", m.value) }

type wordsMatcher struct{ words []string }

// Words matches labels containing every given word as a whole token.
// Each argument may itself hold several words.
func Words(words ...string) Matcher {
	var all []string
	for _, w := range words {
		all = append(all, strings.Fields(Normalize(w))...)
	}
	return wordsMatcher{all}
}

func (m wordsMatcher) Match(s string) bool {
	if len(m.words) == 0 {
		return false
	}
	tokens := strings.Fields(s)
	for _, w := range m.words {
		if !slices.Contains(tokens, w) {
			return false
		}
	}
	return true
}

func (m wordsMatcher) String() string { return fmt.Sprintf("words(%q)", strings.Join(m.words, " ")) }

type patternMatcher struct{ re *regexp.Regexp }

// Pattern matches normalised labels against a regular expression.
func Pattern(expr string) (Matcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return patternMatcher{re}, nil
}

// MustPattern is like Pattern but panics on an invalid expression.
// It is intended for the built-in table.
func MustPattern(expr string) Matcher {
	m, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return m
}

func (m patternMatcher) Match(s string) bool { return m.re.MatchString(s) }
func (m patternMatcher) String() string      { return fmt.Sprintf("pattern(%q)", m.re.String()) }

type anyMatcher struct{}

// Any matches every label. A table's final rule must use it.
func Any() Matcher { return anyMatcher{} }

func (anyMatcher) Match(string) bool { return true }
func (anyMatcher) String() string    { return "any" }

// IsCatchAll reports whether m accepts every label.
func IsCatchAll(m Matcher) bool {
	_, ok := m.(anyMatcher)
	return ok
}
