package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/datatide-labs/datatide/pkg/dataset"
	"github.com/datatide-labs/datatide/pkg/rules"
)

// Overrides carries command-line adjustments that are merged on top of a
// loaded suite configuration.
type Overrides struct {
	IncludeTags       []string
	ExcludeTags       []string
	SeverityOverrides map[string]string
}

// Merge folds command-line overrides into the suite configuration. Tags are
// appended to the configured selectors and severity overrides replace any
// configured entry with the same rule name.
func (c *SuiteConfig) Merge(ov Overrides) {
	for _, tag := range ov.IncludeTags {
		c.Selectors.IncludeTags = append(c.Selectors.IncludeTags, strings.ToLower(tag))
	}
	for _, tag := range ov.ExcludeTags {
		c.Selectors.ExcludeTags = append(c.Selectors.ExcludeTags, strings.ToLower(tag))
	}
	if len(ov.SeverityOverrides) > 0 {
		if c.SeverityOverrides == nil {
			c.SeverityOverrides = make(map[string]string, len(ov.SeverityOverrides))
		}
		for name, level := range ov.SeverityOverrides {
			c.SeverityOverrides[name] = level
		}
	}
}

// BuildRules constructs the suite's rules from the configured entries.
// Entries whose registered tags fail the selector are skipped, and severity
// overrides are applied to the constructed set before it is returned.
func (c *SuiteConfig) BuildRules(ctx context.Context, registry *rules.Registry, engine *dataset.Engine) ([]rules.Rule, error) {
	selector := rules.NewSelector(c.Selectors.IncludeTags, c.Selectors.ExcludeTags)
	env := rules.BuildEnv{Loader: engine}

	built := make([]rules.Rule, 0, len(c.Rules))
	for i, entry := range c.Rules {
		typeName, _ := entry["type"].(string)
		if typeName == "" {
			return nil, fmt.Errorf("rules[%d]: missing required key 'type'", i)
		}

		def, err := registry.Lookup(typeName)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if !selector.Matches(def.Tags) {
			continue
		}

		rule, err := def.Build(ctx, entry, env)
		if err != nil {
			return nil, fmt.Errorf("rules[%d] (%s): %w", i, typeName, err)
		}
		built = append(built, rule)
	}

	if err := rules.ApplySeverityOverrides(built, c.SeverityOverrides, c.OverrideAllMatches); err != nil {
		return nil, err
	}
	return built, nil
}
