package rules

import (
	"context"
	"fmt"

	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
)

// RelationshipRule fails when the column contains values absent from the
// distinct values of a reference dataset's column.
type RelationshipRule struct {
	columnRule
	reference *dataset.Dataset
	refColumn string
}

// NewRelationship creates a referential-integrity rule. The reference
// dataset is projected down to the reference column at construction so the
// full reference table is not retained.
func NewRelationship(ctx context.Context, column string, reference *dataset.Dataset, referenceColumn string) (*RelationshipRule, error) {
	projected, err := reference.Project(ctx, referenceColumn)
	if err != nil {
		return nil, fmt.Errorf("relationship rule on %s: %w", column, err)
	}

	return &RelationshipRule{
		columnRule: newColumnRule("RelationshipRule", column),
		reference:  projected,
		refColumn:  referenceColumn,
	}, nil
}

// Evaluate counts rows whose value has no match among the reference
// column's distinct values.
func (r *RelationshipRule) Evaluate(ctx context.Context, ds *dataset.Dataset) (core.RuleResult, error) {
	violations, err := ds.CountUnmatched(ctx, r.column, r.reference, r.refColumn)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("rule %s: %w", r.Name(), err)
	}

	// reference_size reports distinct reference values, independent of
	// reference row duplicates.
	refSize, err := r.reference.DistinctCount(ctx, r.refColumn)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("rule %s: %w", r.Name(), err)
	}

	return result(r.Name(), r.severity, violations,
		"referential integrity holds",
		fmt.Sprintf("%d values missing from reference %s", violations, r.refColumn),
		map[string]any{
			"violation_count":  violations,
			"reference_column": r.refColumn,
			"reference_size":   refSize,
		},
	), nil
}
