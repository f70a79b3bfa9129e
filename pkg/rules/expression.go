package rules

import (
	"context"
	"fmt"

	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
)

// InvalidExpressionError is returned when an expression rule's predicate
// text fails to compile against the dataset or does not yield a per-row
// boolean predicate.
type InvalidExpressionError struct {
	Expression string
	Reason     string
	Err        error
}

func (e *InvalidExpressionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid expression %q: %s: %v", e.Expression, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid expression %q: %s", e.Expression, e.Reason)
}

func (e *InvalidExpressionError) Unwrap() error {
	return e.Err
}

// ExpressionRule evaluates a boolean predicate, written in the dataset
// engine's SQL expression language, for every row. The predicate text is
// only ever parsed and evaluated by the engine itself; no general-purpose
// evaluator is involved. Validation is deferred to evaluation time, when
// the dataset's schema is known.
type ExpressionRule struct {
	expression  string
	severity    core.Severity
	description string
}

// NewExpression creates an expression rule from predicate text.
func NewExpression(expression string) *ExpressionRule {
	return &ExpressionRule{
		expression:  expression,
		severity:    core.SeverityError,
		description: "ExpressionRule on " + expression,
	}
}

// Name returns "ExpressionRule::" followed by the predicate text.
func (r *ExpressionRule) Name() string {
	return "ExpressionRule::" + r.expression
}

// Expression returns the predicate text.
func (r *ExpressionRule) Expression() string {
	return r.expression
}

func (r *ExpressionRule) Description() string {
	return r.description
}

func (r *ExpressionRule) SetDescription(description string) {
	if description != "" {
		r.description = description
	}
}

func (r *ExpressionRule) Severity() core.Severity {
	return r.severity
}

func (r *ExpressionRule) SetSeverity(severity core.Severity) {
	r.severity = severity
}

// Evaluate binds the predicate through the engine's parser, requires it to
// type as BOOLEAN, and counts rows where it evaluates to false. Rows where
// the predicate evaluates to NULL are not counted as violations.
func (r *ExpressionRule) Evaluate(ctx context.Context, ds *dataset.Dataset) (core.RuleResult, error) {
	typ, err := ds.PredicateType(ctx, r.expression)
	if err != nil {
		return core.RuleResult{}, &InvalidExpressionError{
			Expression: r.expression,
			Reason:     "does not compile against the dataset",
			Err:        err,
		}
	}
	if typ != "BOOLEAN" {
		return core.RuleResult{}, &InvalidExpressionError{
			Expression: r.expression,
			Reason:     fmt.Sprintf("must be a row predicate of type BOOLEAN, got %s", typ),
		}
	}

	violations, err := ds.CountPredicateFalse(ctx, r.expression)
	if err != nil {
		return core.RuleResult{}, fmt.Errorf("rule %s: %w", r.Name(), err)
	}

	return result(r.Name(), r.severity, violations,
		"expression satisfied for all rows",
		fmt.Sprintf("%d expression violations detected", violations),
		map[string]any{
			"expression":      r.expression,
			"violation_count": violations,
		},
	), nil
}
