package core

// Report is the final aggregate of one validation run. Results appear in
// evaluation order; the sequence is truncated early when fail-fast triggered.
type Report struct {
	RunID       string       `json:"run_id"`
	DatasetName string       `json:"dataset_name"`
	Results     []RuleResult `json:"results"`
}

// Passed reports whether every rule in the run passed. Severity does not
// factor in: a failed warn-severity rule fails the report.
func (r *Report) Passed() bool {
	for _, result := range r.Results {
		if !result.Passed() {
			return false
		}
	}
	return true
}

// FailedRules returns the failed results in evaluation order.
func (r *Report) FailedRules() []RuleResult {
	var failed []RuleResult
	for _, result := range r.Results {
		if !result.Passed() {
			failed = append(failed, result)
		}
	}
	return failed
}

// HardFailed returns the failed results with error severity.
func (r *Report) HardFailed() []RuleResult {
	var failed []RuleResult
	for _, result := range r.Results {
		if !result.Passed() && result.Severity == SeverityError {
			failed = append(failed, result)
		}
	}
	return failed
}

// SoftFailed returns the failed results with warn severity.
func (r *Report) SoftFailed() []RuleResult {
	var failed []RuleResult
	for _, result := range r.Results {
		if !result.Passed() && result.Severity == SeverityWarn {
			failed = append(failed, result)
		}
	}
	return failed
}
