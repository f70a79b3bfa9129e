// Package config loads and validates validation suite configuration.
// It is decoupled from CLI concerns; the CLI merges its flag overrides
// through the loader's koanf layers.
package config

import (
	"fmt"
	"strings"
)

// Default file locations.
const (
	// DefaultLoggerPath is where run history is persisted when the suite
	// does not name a path.
	DefaultLoggerPath = "datatide_runs.db"

	// DefaultDatasetFormat is assumed when the dataset entry has no format.
	DefaultDatasetFormat = "parquet"
)

// supportedFormats are the dataset file formats the engine can read.
var supportedFormats = map[string]bool{
	"parquet": true,
	"csv":     true,
}

// DatasetConfig names the dataset under validation and where to load it
// from.
type DatasetConfig struct {
	Name   string `koanf:"name"`
	Path   string `koanf:"path"`
	Format string `koanf:"format"`
}

// SelectorConfig holds the tag filters applied to the registry's rule
// definitions before rule construction.
type SelectorConfig struct {
	IncludeTags []string `koanf:"include_tags"`
	ExcludeTags []string `koanf:"exclude_tags"`
}

// LoggerConfig configures the run log store.
type LoggerConfig struct {
	Path string `koanf:"path"`
}

// SuiteConfig is one validation suite: a dataset plus an ordered list of
// rule configurations. Each rule entry is a free-form mapping carrying at
// least a "type" key resolvable via the registry.
type SuiteConfig struct {
	Dataset   DatasetConfig    `koanf:"dataset"`
	FailFast  bool             `koanf:"fail_fast"`
	Rules     []map[string]any `koanf:"rules"`
	Selectors SelectorConfig   `koanf:"selectors"`

	// SeverityOverrides maps fully qualified rule names to severity levels,
	// applied after rule construction.
	SeverityOverrides map[string]string `koanf:"severity_overrides"`

	// OverrideAllMatches applies a severity override to every rule whose
	// name matches instead of only the first.
	OverrideAllMatches bool `koanf:"override_all_matches"`

	Logger LoggerConfig `koanf:"logger"`
}

// ApplyDefaults fills in the defaulted fields.
func (c *SuiteConfig) ApplyDefaults() {
	if c.Dataset.Format == "" {
		c.Dataset.Format = DefaultDatasetFormat
	}
	if c.Logger.Path == "" {
		c.Logger.Path = DefaultLoggerPath
	}
}

// Validate checks the suite for structural problems before any rule is
// built.
func (c *SuiteConfig) Validate() error {
	if c.Dataset.Name == "" {
		return fmt.Errorf("dataset.name is required")
	}
	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}
	if !supportedFormats[strings.ToLower(c.Dataset.Format)] {
		return fmt.Errorf("unsupported dataset format: %s", c.Dataset.Format)
	}
	for i, ruleCfg := range c.Rules {
		if _, ok := ruleCfg["type"].(string); !ok {
			return fmt.Errorf("rules[%d]: entry missing 'type'", i)
		}
	}
	return nil
}
