package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-viper/mapstructure/v2"

	"github.com/datatide-labs/datatide/pkg/core"
)

// refSeq numbers reference views staged by relationship builders.
var refSeq atomic.Uint64

// commonConfig holds the keys every rule config accepts.
type commonConfig struct {
	Severity    string `mapstructure:"severity"`
	Description string `mapstructure:"description"`
}

type columnConfig struct {
	commonConfig `mapstructure:",squash"`
	Column       string `mapstructure:"column"`
}

type acceptedValuesConfig struct {
	columnConfig  `mapstructure:",squash"`
	AllowedValues []any `mapstructure:"allowed_values"`
}

type referenceConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
	Column string `mapstructure:"column"`
}

type relationshipConfig struct {
	columnConfig `mapstructure:",squash"`
	Reference    referenceConfig `mapstructure:"reference"`
}

type expressionConfig struct {
	commonConfig `mapstructure:",squash"`
	Expression   string `mapstructure:"expression"`
}

// configurable is the mutable surface builders adjust after construction.
type configurable interface {
	SetSeverity(core.Severity)
	SetDescription(string)
}

func decodeConfig(ruleType string, cfg map[string]any, out any) error {
	if err := mapstructure.Decode(cfg, out); err != nil {
		return fmt.Errorf("rule type %q: invalid configuration: %w", ruleType, err)
	}
	return nil
}

func applyCommon(rule configurable, common commonConfig) error {
	if common.Severity != "" {
		severity, err := core.ParseSeverity(common.Severity)
		if err != nil {
			return err
		}
		rule.SetSeverity(severity)
	}
	rule.SetDescription(common.Description)
	return nil
}

func buildNotNull(_ context.Context, cfg map[string]any, _ BuildEnv) (Rule, error) {
	var c columnConfig
	if err := decodeConfig("not_null", cfg, &c); err != nil {
		return nil, err
	}
	if c.Column == "" {
		return nil, fmt.Errorf("rule type \"not_null\": missing required key \"column\"")
	}

	rule := NewNotNull(c.Column)
	if err := applyCommon(rule, c.commonConfig); err != nil {
		return nil, err
	}
	return rule, nil
}

func buildUnique(_ context.Context, cfg map[string]any, _ BuildEnv) (Rule, error) {
	var c columnConfig
	if err := decodeConfig("unique", cfg, &c); err != nil {
		return nil, err
	}
	if c.Column == "" {
		return nil, fmt.Errorf("rule type \"unique\": missing required key \"column\"")
	}

	rule := NewUnique(c.Column)
	if err := applyCommon(rule, c.commonConfig); err != nil {
		return nil, err
	}
	return rule, nil
}

func buildAcceptedValues(_ context.Context, cfg map[string]any, _ BuildEnv) (Rule, error) {
	var c acceptedValuesConfig
	if err := decodeConfig("accepted_values", cfg, &c); err != nil {
		return nil, err
	}
	if c.Column == "" {
		return nil, fmt.Errorf("rule type \"accepted_values\": missing required key \"column\"")
	}
	if len(c.AllowedValues) == 0 {
		return nil, fmt.Errorf("rule type \"accepted_values\": missing required key \"allowed_values\"")
	}

	rule := NewAcceptedValues(c.Column, c.AllowedValues)
	if err := applyCommon(rule, c.commonConfig); err != nil {
		return nil, err
	}
	return rule, nil
}

func buildRelationship(ctx context.Context, cfg map[string]any, env BuildEnv) (Rule, error) {
	var c relationshipConfig
	if err := decodeConfig("relationship", cfg, &c); err != nil {
		return nil, err
	}
	if c.Column == "" {
		return nil, fmt.Errorf("rule type \"relationship\": missing required key \"column\"")
	}
	if c.Reference.Path == "" {
		return nil, fmt.Errorf("rule type \"relationship\": missing required key \"reference.path\"")
	}
	if c.Reference.Column == "" {
		return nil, fmt.Errorf("rule type \"relationship\": missing required key \"reference.column\"")
	}
	if env.Loader == nil {
		return nil, fmt.Errorf("rule type \"relationship\": no dataset loader available")
	}

	format := c.Reference.Format
	if format == "" {
		format = "parquet"
	}

	// The view name is namespaced with a sequence number so a reference
	// whose basename matches the dataset under validation, or another
	// reference, cannot clobber it.
	base := strings.TrimSuffix(filepath.Base(c.Reference.Path), filepath.Ext(c.Reference.Path))
	name := fmt.Sprintf("ref_%d_%s", refSeq.Add(1), base)
	reference, err := env.Loader.Load(ctx, name, c.Reference.Path, format)
	if err != nil {
		return nil, fmt.Errorf("rule type \"relationship\": %w", err)
	}

	rule, err := NewRelationship(ctx, c.Column, reference, c.Reference.Column)
	if err != nil {
		return nil, err
	}
	if err := applyCommon(rule, c.commonConfig); err != nil {
		return nil, err
	}
	return rule, nil
}

func buildExpression(_ context.Context, cfg map[string]any, _ BuildEnv) (Rule, error) {
	var c expressionConfig
	if err := decodeConfig("expression", cfg, &c); err != nil {
		return nil, err
	}
	if c.Expression == "" {
		return nil, fmt.Errorf("rule type \"expression\": missing required key \"expression\"")
	}

	rule := NewExpression(c.Expression)
	if err := applyCommon(rule, c.commonConfig); err != nil {
		return nil, err
	}
	return rule, nil
}

// RegisterBuiltins registers the five built-in rule types.
func RegisterBuiltins(r *Registry) error {
	builtins := []Definition{
		{
			Name:        "not_null",
			Description: "Fails when the specified column contains null values.",
			Tags:        []string{"nulls", "integrity"},
			Build:       buildNotNull,
		},
		{
			Name:        "unique",
			Description: "Fails when duplicate values are detected in the column.",
			Tags:        []string{"uniqueness", "integrity"},
			Build:       buildUnique,
		},
		{
			Name:        "accepted_values",
			Description: "Ensures all column values are part of an allowed set.",
			Tags:        []string{"reference", "categorical"},
			Build:       buildAcceptedValues,
		},
		{
			Name:        "relationship",
			Description: "Verifies referential integrity with an on-disk reference dataset.",
			Tags:        []string{"reference", "integrity"},
			Build:       buildRelationship,
		},
		{
			Name:        "expression",
			Description: "Evaluates a boolean SQL expression defined as a string.",
			Tags:        []string{"expression", "flexible"},
			Build:       buildExpression,
		},
	}

	for _, def := range builtins {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry returns a fresh registry with the built-ins registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// Built-in names are fixed and the registry is empty; this cannot
		// fail at runtime.
		panic(err)
	}
	return r
}
