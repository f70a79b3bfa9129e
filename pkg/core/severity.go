package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// Severity
// =============================================================================

// Severity indicates how a failed rule affects a validation run.
type Severity int

// Severity levels for rule failures.
const (
	// SeverityError indicates a failure that can short-circuit a run
	// when fail-fast is enabled.
	SeverityError Severity = iota
	// SeverityWarn indicates a failure that is reported but never
	// halts a run.
	SeverityWarn
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarn:
		return "warn"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its string form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a string to a Severity value.
// Returns an InvalidSeverityError for anything other than "error" or "warn".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, nil
	case "warn":
		return SeverityWarn, nil
	default:
		return SeverityError, &InvalidSeverityError{Level: s}
	}
}

// InvalidSeverityError is returned when a severity string cannot be parsed.
type InvalidSeverityError struct {
	Level string
}

func (e *InvalidSeverityError) Error() string {
	return fmt.Sprintf("unknown severity %q (expected \"error\" or \"warn\")", e.Level)
}

// =============================================================================
// Status
// =============================================================================

// Status is the outcome of a single rule evaluation.
type Status string

// Rule evaluation outcomes.
const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)
