package rules

import (
	"strings"

	"github.com/datatide-labs/datatide/pkg/core"
)

// Selector filters rule definitions by include/exclude tags. A definition
// matches iff its tag set intersects IncludeTags (or IncludeTags is empty)
// and does not intersect ExcludeTags (or ExcludeTags is empty). Both checks
// must hold, so a tag present in both sets excludes the rule.
type Selector struct {
	IncludeTags []string
	ExcludeTags []string
}

// NewSelector builds a selector, lowercasing both tag sets.
func NewSelector(includeTags, excludeTags []string) Selector {
	return Selector{
		IncludeTags: lowerAll(includeTags),
		ExcludeTags: lowerAll(excludeTags),
	}
}

// Matches reports whether a definition with the given tags passes the
// selector.
func (s Selector) Matches(tags []string) bool {
	lowered := lowerAll(tags)
	if len(s.IncludeTags) > 0 && !intersects(lowered, s.IncludeTags) {
		return false
	}
	if len(s.ExcludeTags) > 0 && intersects(lowered, s.ExcludeTags) {
		return false
	}
	return true
}

func lowerAll(tags []string) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = strings.ToLower(tag)
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// ApplySeverityOverrides applies post-construction severity overrides keyed
// by fully qualified rule name. By default an override applies to the first
// rule whose name matches; with allMatches it applies to every match.
// An unparseable severity level fails with an InvalidSeverityError.
func ApplySeverityOverrides(ruleList []Rule, overrides map[string]string, allMatches bool) error {
	for name, level := range overrides {
		severity, err := core.ParseSeverity(level)
		if err != nil {
			return err
		}
		for _, rule := range ruleList {
			if rule.Name() != name {
				continue
			}
			rule.SetSeverity(severity)
			if !allMatches {
				break
			}
		}
	}
	return nil
}
