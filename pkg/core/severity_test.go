package core

import (
	"errors"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input   string
		want    Severity
		wantErr bool
	}{
		{"error", SeverityError, false},
		{"warn", SeverityWarn, false},
		{"ERROR", SeverityError, false},
		{"Warn", SeverityWarn, false},
		{"critical", SeverityError, true},
		{"", SeverityError, true},
	}

	for _, tt := range tests {
		got, err := ParseSeverity(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSeverity(%q): expected error", tt.input)
				continue
			}
			var sevErr *InvalidSeverityError
			if !errors.As(err, &sevErr) {
				t.Errorf("ParseSeverity(%q): expected InvalidSeverityError, got %T", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSeverity(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSeverityString(t *testing.T) {
	if SeverityError.String() != "error" {
		t.Errorf("SeverityError.String() = %q", SeverityError.String())
	}
	if SeverityWarn.String() != "warn" {
		t.Errorf("SeverityWarn.String() = %q", SeverityWarn.String())
	}
	if Severity(42).String() != "unknown" {
		t.Errorf("out-of-range severity should stringify as unknown")
	}
}

func TestReportAggregates(t *testing.T) {
	report := &Report{
		RunID:       "run-1",
		DatasetName: "orders",
		Results: []RuleResult{
			{RuleName: "a", Status: StatusPassed, Severity: SeverityError},
			{RuleName: "b", Status: StatusFailed, Severity: SeverityWarn},
			{RuleName: "c", Status: StatusFailed, Severity: SeverityError},
		},
	}

	if report.Passed() {
		t.Error("report with failures must not pass")
	}
	if got := len(report.FailedRules()); got != 2 {
		t.Errorf("FailedRules() = %d, want 2", got)
	}
	if got := len(report.HardFailed()); got != 1 {
		t.Errorf("HardFailed() = %d, want 1", got)
	}
	if got := len(report.SoftFailed()); got != 1 {
		t.Errorf("SoftFailed() = %d, want 1", got)
	}

	empty := &Report{RunID: "run-2", DatasetName: "orders"}
	if !empty.Passed() {
		t.Error("report with no results passes vacuously")
	}
}
