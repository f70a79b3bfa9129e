// Package rules provides the validation rule contract, the built-in rule
// variants, and the registry that builds rules from configuration.
package rules

import (
	"context"

	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
)

// Rule is the contract every validation rule satisfies. Evaluate computes a
// violation count against the dataset and maps it to a passed/failed result;
// it never mutates the dataset.
type Rule interface {
	// Name is the stable display name derived from the rule kind and its
	// primary target, e.g. "NotNullRule::order_id". Severity overrides and
	// failure reports address rules by this string.
	Name() string

	// Description is a human-readable summary of what the rule checks.
	Description() string

	// Severity returns the rule's current severity.
	Severity() core.Severity

	// SetSeverity replaces the rule's severity. Identity is immutable;
	// severity is the one mutable attribute, adjusted by overrides.
	SetSeverity(severity core.Severity)

	// Evaluate runs the rule against the dataset.
	Evaluate(ctx context.Context, ds *dataset.Dataset) (core.RuleResult, error)
}

// columnRule carries the identity shared by the column-targeted variants.
type columnRule struct {
	kind        string
	column      string
	severity    core.Severity
	description string
}

func newColumnRule(kind, column string) columnRule {
	return columnRule{
		kind:        kind,
		column:      column,
		severity:    core.SeverityError,
		description: kind + " on " + column,
	}
}

func (r *columnRule) Name() string {
	return r.kind + "::" + r.column
}

func (r *columnRule) Description() string {
	return r.description
}

func (r *columnRule) SetDescription(description string) {
	if description != "" {
		r.description = description
	}
}

func (r *columnRule) Severity() core.Severity {
	return r.severity
}

func (r *columnRule) SetSeverity(severity core.Severity) {
	r.severity = severity
}

// result assembles a RuleResult from a violation count.
func result(name string, severity core.Severity, violations int64, passMsg, failMsg string, metrics map[string]any) core.RuleResult {
	status := core.StatusPassed
	message := passMsg
	if violations > 0 {
		status = core.StatusFailed
		message = failMsg
	}
	return core.RuleResult{
		RuleName: name,
		Status:   status,
		Message:  message,
		Severity: severity,
		Metrics:  metrics,
	}
}
