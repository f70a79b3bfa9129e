package core

import "time"

// RuleResult is the outcome of evaluating a single rule against a dataset.
// Results are immutable once created.
type RuleResult struct {
	// RuleName is the derived display name of the rule, e.g. "NotNullRule::order_id".
	RuleName string `json:"rule_name"`

	// Status is passed or failed.
	Status Status `json:"status"`

	// Message is a human-readable summary of the outcome.
	Message string `json:"message"`

	// Severity is copied from the rule at evaluation time.
	Severity Severity `json:"severity"`

	// Metrics holds quantitative observations, e.g. "null_count" or
	// "violation_count".
	Metrics map[string]any `json:"metrics,omitempty"`
}

// Passed reports whether the rule passed.
func (r RuleResult) Passed() bool {
	return r.Status == StatusPassed
}

// RuleContext carries per-run identity shared by all rule evaluations and
// logger calls within one run. ExecutedAt is captured once at construction,
// not re-sampled per rule.
type RuleContext struct {
	DatasetName string
	RunID       string
	ExecutedAt  time.Time
}

// NewRuleContext builds a context for one run, stamping the current UTC time.
func NewRuleContext(datasetName, runID string) RuleContext {
	return RuleContext{
		DatasetName: datasetName,
		RunID:       runID,
		ExecutedAt:  time.Now().UTC(),
	}
}
