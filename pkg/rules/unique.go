package rules

import (
	"context"
	"fmt"

	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
)

// UniqueRule fails when the column contains duplicate values.
//
// duplicate_count is defined as total rows minus distinct values, so a
// duplicate group of size k contributes k-1 to the count. NULL counts as
// one distinct value.
type UniqueRule struct {
	columnRule
}

// NewUnique creates a uniqueness rule for the column.
func NewUnique(column string) *UniqueRule {
	return &UniqueRule{columnRule: newColumnRule("UniqueRule", column)}
}

// Evaluate counts duplicate rows in the column.
func (r *UniqueRule) Evaluate(ctx context.Context, ds *dataset.Dataset) (core.RuleResult, error) {
	total, err := ds.RowCount(ctx)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("rule %s: %w", r.Name(), err)
	}
	distinct, err := ds.DistinctCount(ctx, r.column)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("rule %s: %w", r.Name(), err)
	}

	duplicates := total - distinct
	return result(r.Name(), r.severity, duplicates,
		"column values are unique",
		fmt.Sprintf("%d duplicate rows found", duplicates),
		map[string]any{"duplicate_count": duplicates},
	), nil
}
