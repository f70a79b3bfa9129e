package rules

import (
	"context"
	"fmt"

	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
)

// AcceptedValuesRule fails when the column contains values outside an
// allowed set. NULL counts as a violation unless it is explicitly listed
// among the allowed values (a nil entry).
type AcceptedValuesRule struct {
	columnRule
	allowed []any
}

// NewAcceptedValues creates an accepted-values rule for the column. The
// allowed values are deduplicated at construction, preserving first-seen
// order.
func NewAcceptedValues(column string, allowedValues []any) *AcceptedValuesRule {
	seen := make(map[any]struct{}, len(allowedValues))
	allowed := make([]any, 0, len(allowedValues))
	for _, v := range allowedValues {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		allowed = append(allowed, v)
	}

	return &AcceptedValuesRule{
		columnRule: newColumnRule("AcceptedValuesRule", column),
		allowed:    allowed,
	}
}

// AllowedValues returns the effective allowed set in first-seen order.
func (r *AcceptedValuesRule) AllowedValues() []any {
	out := make([]any, len(r.allowed))
	copy(out, r.allowed)
	return out
}

// Evaluate counts rows whose value is absent from the allowed set.
func (r *AcceptedValuesRule) Evaluate(ctx context.Context, ds *dataset.Dataset) (core.RuleResult, error) {
	violations, err := ds.CountNotIn(ctx, r.column, r.allowed)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("rule %s: %w", r.Name(), err)
	}

	return result(r.Name(), r.severity, violations,
		"column values match allowed set",
		fmt.Sprintf("%d disallowed values detected", violations),
		map[string]any{
			"violation_count": violations,
			"allowed_values":  r.AllowedValues(),
		},
	), nil
}
