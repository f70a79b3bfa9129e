// Package checker coordinates rule execution against a dataset and streams
// results to an optional run logger.
package checker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
	"github.com/datatide-labs/datatide/pkg/rules"
)

// RunLogger persists run lifecycle events. Each call is an independent
// write; implementations must tolerate being called exactly in the order
// started, per-result..., completed within one run.
type RunLogger interface {
	LogRunStarted(ctx context.Context, rc core.RuleContext) error
	LogRuleResult(ctx context.Context, rc core.RuleContext, result core.RuleResult) error
	LogRunCompleted(ctx context.Context, rc core.RuleContext, results []core.RuleResult) error
}

// Bundle is a named, reusable group of rule constructors composed into a
// checker's rule list.
type Bundle struct {
	Name        string
	Description string
	RuleFactory func() []rules.Rule
}

// Rules invokes the factory.
func (b Bundle) Rules() []rules.Rule {
	return b.RuleFactory()
}

// Config configures a Checker.
type Config struct {
	// Rules is the ordered list of rules to evaluate.
	Rules []rules.Rule

	// Bundles are appended after Rules, in bundle order then
	// rule-within-bundle order.
	Bundles []Bundle

	// Logger receives run lifecycle events (optional).
	Logger RunLogger

	// FailFast stops the run after the first error-severity failure.
	FailFast bool

	// Log is the structured logger (optional, discards if nil).
	Log *slog.Logger
}

// Checker runs an ordered list of rules against one dataset per Run call.
type Checker struct {
	rules    []rules.Rule
	logger   RunLogger
	failFast bool
	log      *slog.Logger
}

// New creates a Checker from the config.
func New(cfg Config) *Checker {
	ruleList := make([]rules.Rule, 0, len(cfg.Rules))
	ruleList = append(ruleList, cfg.Rules...)
	for _, bundle := range cfg.Bundles {
		ruleList = append(ruleList, bundle.Rules()...)
	}

	log := cfg.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Checker{
		rules:    ruleList,
		logger:   cfg.Logger,
		failFast: cfg.FailFast,
		log:      log,
	}
}

// Rules returns a copy of the checker's rule list in evaluation order.
func (c *Checker) Rules() []rules.Rule {
	out := make([]rules.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// AddRules appends rules to the end of the evaluation order.
func (c *Checker) AddRules(ruleList ...rules.Rule) {
	c.rules = append(c.rules, ruleList...)
}

// Run evaluates every rule against the dataset in order and returns the
// report. An empty runID is replaced with a generated UUID. Evaluation and
// logger errors propagate immediately; there is no per-rule isolation, so
// one bad rule aborts the whole run.
func (c *Checker) Run(ctx context.Context, ds *dataset.Dataset, datasetName, runID string) (*core.Report, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	rc := core.NewRuleContext(datasetName, runID)

	c.log.Info("starting validation run",
		slog.String("run_id", runID),
		slog.String("dataset", datasetName),
		slog.Int("rules", len(c.rules)))

	if c.logger != nil {
		if err := c.logger.LogRunStarted(ctx, rc); err != nil {
			return nil, fmt.Errorf("failed to log run start: %w", err)
		}
	}

	var results []core.RuleResult
	for _, rule := range c.rules {
		result, err := rule.Evaluate(ctx, ds)
		if err != nil {
			return nil, err
		}
		results = append(results, result)

		c.log.Debug("rule evaluated",
			slog.String("rule", result.RuleName),
			slog.String("status", string(result.Status)))

		if c.logger != nil {
			if err := c.logger.LogRuleResult(ctx, rc, result); err != nil {
				return nil, fmt.Errorf("failed to log rule result: %w", err)
			}
		}

		// A failed warn-severity rule never triggers fail-fast.
		if c.failFast && !result.Passed() && rule.Severity() == core.SeverityError {
			c.log.Info("fail-fast triggered", slog.String("rule", result.RuleName))
			break
		}
	}

	if c.logger != nil {
		if err := c.logger.LogRunCompleted(ctx, rc, results); err != nil {
			return nil, fmt.Errorf("failed to log run completion: %w", err)
		}
	}

	report := &core.Report{
		RunID:       runID,
		DatasetName: datasetName,
		Results:     results,
	}

	c.log.Info("validation run completed",
		slog.String("run_id", runID),
		slog.Bool("passed", report.Passed()),
		slog.Int("evaluated", len(results)))

	return report, nil
}
