package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datatide-labs/datatide/internal/config"
	"github.com/datatide-labs/datatide/internal/state"
	"github.com/datatide-labs/datatide/pkg/checker"
	"github.com/datatide-labs/datatide/pkg/core"
	"github.com/datatide-labs/datatide/pkg/dataset"
	"github.com/datatide-labs/datatide/pkg/rules"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Suite             string   // Path to the suite file
	IncludeTags       []string // Additional include tags
	ExcludeTags       []string // Additional exclude tags
	SeverityOverrides []string // name=level pairs
	JSON              bool     // Machine-readable output
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate [suite-file]",
		Short: "Run a validation suite against a dataset",
		Long: `Evaluate the rules declared in a suite file against its dataset.

Each run is assigned a UUID and recorded in the SQLite run log, one row
per rule result, so history survives process restarts. The command exits
non-zero when any rule fails.`,
		Example: `  # Run the default suite
  datatide validate

  # Run a specific suite file
  datatide validate suites/orders.yml

  # Restrict to rules tagged integrity
  datatide validate --include-tag integrity

  # Demote a rule for this run
  datatide validate --override-severity NotNullRule::email=warn

  # Machine-readable summary
  datatide validate --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.Suite = args[0]
			}
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.IncludeTags, "include-tag", nil, "Only build rules carrying this tag (repeatable)")
	cmd.Flags().StringArrayVar(&opts.ExcludeTags, "exclude-tag", nil, "Skip rules carrying this tag (repeatable)")
	cmd.Flags().StringArrayVar(&opts.SeverityOverrides, "override-severity", nil, "Override a rule's severity, name=level (repeatable)")
	cmd.Flags().Bool("fail-fast", false, "Stop after the first error-severity failure")
	cmd.Flags().Bool("no-fail-fast", false, "Evaluate every rule even after a failure")
	cmd.Flags().String("logger-path", "", "Path to the run log database")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the run summary as JSON")

	return cmd
}

// ValidateJSONOutput is the JSON summary for a validation run.
type ValidateJSONOutput struct {
	RunID       string            `json:"run_id"`
	Dataset     string            `json:"dataset"`
	Passed      bool              `json:"passed"`
	Results     []core.RuleResult `json:"results"`
	FailedRules []string          `json:"failed_rules"`
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	ctx := cmd.Context()
	log := commandLogger(cmd)

	suitePath := opts.Suite
	if suitePath == "" {
		suitePath = "datatide.yml"
	}

	cfg, err := config.Load(suitePath, cmd.Flags())
	if err != nil {
		return err
	}

	overrides, err := parseSeverityOverrides(opts.SeverityOverrides)
	if err != nil {
		return err
	}
	cfg.Merge(config.Overrides{
		IncludeTags:       opts.IncludeTags,
		ExcludeTags:       opts.ExcludeTags,
		SeverityOverrides: overrides,
	})

	engine, err := dataset.Open(ctx, "", log)
	if err != nil {
		return fmt.Errorf("failed to open dataset engine: %w", err)
	}
	defer func() { _ = engine.Close() }()

	ds, err := engine.Load(ctx, cfg.Dataset.Name, cfg.Dataset.Path, cfg.Dataset.Format)
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", cfg.Dataset.Name, err)
	}

	ruleList, err := cfg.BuildRules(ctx, rules.DefaultRegistry(), engine)
	if err != nil {
		return err
	}
	if len(ruleList) == 0 {
		return fmt.Errorf("suite %s selected no rules", suitePath)
	}

	store, err := state.Open(cfg.Logger.Path, state.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer func() { _ = store.Close() }()

	chk := checker.New(checker.Config{
		Rules:    ruleList,
		Logger:   store,
		FailFast: cfg.FailFast,
		Log:      log,
	})

	report, err := chk.Run(ctx, ds, cfg.Dataset.Name, "")
	if err != nil {
		return err
	}

	if opts.JSON {
		if err := renderReportJSON(cmd, report); err != nil {
			return err
		}
	} else {
		renderReportTable(cmd, report)
	}

	if !report.Passed() {
		return fmt.Errorf("validation failed: %d of %d rules failed", len(report.FailedRules()), len(report.Results))
	}
	return nil
}

// parseSeverityOverrides parses repeated name=level pairs. The split is on
// the last '=' because expression rule names may themselves contain one.
func parseSeverityOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		idx := strings.LastIndex(pair, "=")
		if idx <= 0 || idx == len(pair)-1 {
			return nil, fmt.Errorf("invalid severity override %q, expected name=level", pair)
		}
		out[pair[:idx]] = pair[idx+1:]
	}
	return out, nil
}

func renderReportJSON(cmd *cobra.Command, report *core.Report) error {
	out := ValidateJSONOutput{
		RunID:       report.RunID,
		Dataset:     report.DatasetName,
		Passed:      report.Passed(),
		Results:     report.Results,
		FailedRules: []string{},
	}
	for _, result := range report.FailedRules() {
		out.FailedRules = append(out.FailedRules, result.RuleName)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func renderReportTable(cmd *cobra.Command, report *core.Report) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s on dataset %s\n", report.RunID, report.DatasetName)

	rows := make([]table.Row, 0, len(report.Results))
	for _, result := range report.Results {
		rows = append(rows, table.Row{result.RuleName, result.Status, result.Severity.String(), result.Message})
	}
	renderTable(w, table.Row{"Rule", "Status", "Severity", "Message"}, rows)

	if report.Passed() {
		fmt.Fprintf(w, "Passed: %d rules\n", len(report.Results))
	} else {
		fmt.Fprintf(w, "Failed: %d of %d rules\n", len(report.FailedRules()), len(report.Results))
	}
}
