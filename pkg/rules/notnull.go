package rules

import (
	"context"
	"fmt"

	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
)

// NotNullRule fails when the column contains NULL values.
type NotNullRule struct {
	columnRule
}

// NewNotNull creates a not-null rule for the column.
func NewNotNull(column string) *NotNullRule {
	return &NotNullRule{columnRule: newColumnRule("NotNullRule", column)}
}

// Evaluate counts NULL values in the column.
func (r *NotNullRule) Evaluate(ctx context.Context, ds *dataset.Dataset) (core.RuleResult, error) {
	nulls, err := ds.NullCount(ctx, r.column)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("rule %s: %w", r.Name(), err)
	}

	return result(r.Name(), r.severity, nulls,
		"column has no nulls",
		fmt.Sprintf("%d null values found", nulls),
		map[string]any{"null_count": nulls},
	), nil
}
