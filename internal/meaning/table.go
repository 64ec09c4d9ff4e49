package meaning

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNoCatchAll is returned when a rule table does not end with a catch-all rule.
var ErrNoCatchAll = errors.New("rule table must end with a catch-all rule")

// CatchAllExplanation is the explanation template of the built-in catch-all rule.
const CatchAllExplanation = "Follow the indicated regulation for {label}."

// Resolver maps a label to its explanation.
type Resolver interface {
	Resolve(label string) string
}

// Rule maps matching labels to an explanation.
//
// Explanation may contain the placeholders {label}, replaced by the label as
// given, and {number}, replaced by the first integer found in the normalized
// label (or removed when there is none).
type Rule struct {
	Name        string
	Priority    int
	Match       Matcher
	Explanation string
}

// Explain expands the rule's explanation for label.
func (r Rule) Explain(label string) string {
	return strings.NewReplacer(
		"{label}", label,
		"{number}", firstNumber(Normalize(label)),
	).Replace(r.Explanation)
}

// Table is an immutable, ordered rule table.
type Table struct {
	rules []Rule
}

// NewTable builds a table from rules.
//
// Rules are ordered by ascending Priority; rules with equal priority keep their
// relative order. After ordering, the last rule must be a catch-all (see Any),
// otherwise ErrNoCatchAll is returned.
func NewTable(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, ErrNoCatchAll
	}
	ordered := slices.Clone(rules)
	for i, r := range ordered {
		if r.Match == nil {
			return nil, fmt.Errorf("rule %d (%q) has no matcher", i, r.Name)
		}
		if strings.TrimSpace(r.Explanation) == "" {
			return nil, fmt.Errorf("rule %d (%q) has an empty explanation", i, r.Name)
		}
	}
	slices.SortStableFunc(ordered, func(a, b Rule) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	if !IsCatchAll(ordered[len(ordered)-1].Match) {
		return nil, ErrNoCatchAll
	}
	return &Table{rules: ordered}, nil
}

// MustTable is like NewTable but panics on error.
func MustTable(rules []Rule) *Table {
	t, err := NewTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}

// Rules returns a copy of the ordered rules.
func (t *Table) Rules() []Rule {
	return slices.Clone(t.rules)
}

// Resolve implements Resolver.
func (t *Table) Resolve(label string) string {
	_, explanation := t.Lookup(label)
	return explanation
}

// Lookup returns the first matching rule and its expanded explanation.
func (t *Table) Lookup(label string) (Rule, string) {
	return lookup(label, t.rules)
}

// Resolve evaluates rules in the given order and returns the explanation of the
// first match. When no rule matches, which only happens for a slice lacking a
// catch-all, the built-in catch-all explanation is returned.
func Resolve(label string, rules []Rule) string {
	_, explanation := lookup(label, rules)
	return explanation
}

// lookup skips a matching rule whose expansion is blank, such as a bare
// {number} template applied to a label without digits.
func lookup(label string, rules []Rule) (Rule, string) {
	normalized := Normalize(label)
	display := displayLabel(label)
	for _, r := range rules {
		if r.Match == nil || !r.Match.Match(normalized) {
			continue
		}
		if text := r.Explain(display); strings.TrimSpace(text) != "" {
			return r, text
		}
	}
	fallback := catchAll()
	return fallback, fallback.Explain(display)
}

// displayLabel trims the label for use inside explanations. An empty label
// still yields readable text.
func displayLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "this sign"
	}
	return label
}
