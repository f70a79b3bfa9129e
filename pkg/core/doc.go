// Package core defines the shared language of the datatide system.
//
// This package contains:
//   - Severity and Status enums for rule outcomes
//   - RuleResult and RuleContext value types
//   - Report, the aggregate produced by one validation run
//
// The Golden Rule: pkg/core imports only the stdlib. All other packages
// depend on core, not the reverse.
package core
