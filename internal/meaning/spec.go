package meaning

import (
	"fmt"
	"strings"
)

// Match kinds accepted in rule specs.
const (
	KindExact    = "exact"
	KindPrefix   = "prefix"
	KindContains = "contains"
	KindWords    = "words"
	KindPattern  = "pattern"
	KindAny      = "any"
)

// MatchSpec is the serialisable form of a Matcher.
type MatchSpec struct {
	Kind  string `yaml:"kind" json:"kind"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// RuleSpec is the serialisable form of a Rule, as found in configuration files.
type RuleSpec struct {
	Name        string    `yaml:"name" json:"name"`
	Priority    int       `yaml:"priority" json:"priority"`
	Match       MatchSpec `yaml:"match" json:"match"`
	Explanation string    `yaml:"explanation" json:"explanation"`
}

// Matcher builds the matcher described by s.
func (s MatchSpec) Matcher() (Matcher, error) {
	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	if kind != KindAny && strings.TrimSpace(s.Value) == "" {
		return nil, fmt.Errorf("match kind %q requires a value", s.Kind)
	}
	switch kind {
	case KindExact:
		return Exact(s.Value), nil
	case KindPrefix:
		return Prefix(s.Value), nil
	case KindContains:
		return Contains(s.Value), nil
	case KindWords:
		return Words(s.Value), nil
	case KindPattern:
		return Pattern(s.Value)
	case KindAny:
		return Any(), nil
	default:
		return nil, fmt.Errorf("unknown match kind %q", s.Kind)
	}
}

// Compile builds a table from specs. When the specs do not end with a catch-all
// rule, the built-in catch-all is appended so the table stays total.
func Compile(specs []RuleSpec) (*Table, error) {
	rules := make([]Rule, 0, len(specs)+1)
	hasCatchAll := false
	for i, spec := range specs {
		m, err := spec.Match.Matcher()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, spec.Name, err)
		}
		priority := spec.Priority
		if IsCatchAll(m) {
			hasCatchAll = true
			priority = CatchAllPriority
		}
		rules = append(rules, Rule{
			Name:        spec.Name,
			Priority:    priority,
			Match:       m,
			Explanation: spec.Explanation,
		})
	}
	if !hasCatchAll {
		rules = append(rules, catchAll())
	}
	return NewTable(rules)
}

// Specs returns the serialisable form of the table's rules. Matchers that have
// no spec form (custom Matcher implementations) are reported by their String.
func (t *Table) Specs() []RuleSpec {
	specs := make([]RuleSpec, len(t.rules))
	for i, r := range t.rules {
		specs[i] = RuleSpec{
			Name:        r.Name,
			Priority:    r.Priority,
			Match:       specOf(r.Match),
			Explanation: r.Explanation,
		}
	}
	return specs
}

func specOf(m Matcher) MatchSpec {
	switch v := m.(type) {
	case exactMatcher:
		return MatchSpec{Kind: KindExact, Value: v.value}
	case prefixMatcher:
		return MatchSpec{Kind: KindPrefix, Value: v.value}
	case containsMatcher:
		return MatchSpec{Kind: KindContains, Value: v.value}
	case wordsMatcher:
		return MatchSpec{Kind: KindWords, Value: strings.Join(v.words, " ")}
	case patternMatcher:
		return MatchSpec{Kind: KindPattern, Value: v.re.String()}
	case anyMatcher:
		return MatchSpec{Kind: KindAny}
	default:
		return MatchSpec{Kind: m.String()}
	}
}
