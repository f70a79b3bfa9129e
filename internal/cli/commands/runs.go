package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datatide-labs/datatide/internal/config"
	"github.com/datatide-labs/datatide/internal/state"
)

// RunsOptions holds options for the runs command.
type RunsOptions struct {
	Path  string // Run log database path
	Limit int    // Maximum runs to list
	JSON  bool   // Machine-readable output
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	opts := &RunsOptions{}
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Inspect recorded validation runs",
		Long: `Show the run log recorded by previous validate invocations.

Without arguments the most recent runs are listed, newest first. With a
run ID the run's individual rule results are shown. Runs with no finish
time were interrupted before completing.`,
		Example: `  # List recent runs
  datatide runs

  # Show the results of one run
  datatide runs 4b4ee4f1-7a1f-44f1-a6ed-72a24c8584ff

  # Read a non-default run log
  datatide runs --logger-path runs.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRun(cmd, opts, args[0])
			}
			return listRuns(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Path, "logger-path", config.DefaultLoggerPath, "Path to the run log database")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

// RunInfo is the JSON shape of one run row.
type RunInfo struct {
	RunID       string     `json:"run_id"`
	Dataset     string     `json:"dataset"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	TotalRules  int        `json:"total_rules"`
	FailedRules int        `json:"failed_rules"`
}

// ResultInfo is the JSON shape of one rule result row.
type ResultInfo struct {
	RuleName   string    `json:"rule_name"`
	Status     string    `json:"status"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	Metrics    string    `json:"metrics"`
	RecordedAt time.Time `json:"recorded_at"`
}

func openStore(cmd *cobra.Command, opts *RunsOptions) (*state.Store, error) {
	store, err := state.Open(opts.Path, state.Options{Logger: commandLogger(cmd)})
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", opts.Path, err)
	}
	return store, nil
}

func listRuns(cmd *cobra.Command, opts *RunsOptions) error {
	store, err := openStore(cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return err
	}

	if opts.JSON {
		infos := make([]RunInfo, 0, len(records))
		for _, rec := range records {
			infos = append(infos, runInfo(rec))
		}
		return writeJSON(cmd.OutOrStdout(), infos)
	}

	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row{
			rec.RunID,
			rec.DatasetName,
			rec.StartedAt.Format(time.RFC3339),
			formatFinished(rec.FinishedAt),
			rec.TotalRules,
			rec.FailedRules,
		})
	}
	renderTable(cmd.OutOrStdout(), table.Row{"Run ID", "Dataset", "Started", "Finished", "Rules", "Failed"}, rows)
	return nil
}

func showRun(cmd *cobra.Command, opts *RunsOptions, runID string) error {
	store, err := openStore(cmd, opts)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	results, err := store.ListResults(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if opts.JSON {
		out := struct {
			Run     RunInfo      `json:"run"`
			Results []ResultInfo `json:"results"`
		}{Run: runInfo(rec), Results: make([]ResultInfo, 0, len(results))}
		for _, res := range results {
			out.Results = append(out.Results, ResultInfo{
				RuleName:   res.RuleName,
				Status:     res.Status,
				Severity:   res.Severity,
				Message:    res.Message,
				Metrics:    res.Metrics,
				RecordedAt: res.RecordedAt,
			})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s on dataset %s\n", rec.RunID, rec.DatasetName)
	fmt.Fprintf(w, "Started %s, finished %s\n", rec.StartedAt.Format(time.RFC3339), formatFinished(rec.FinishedAt))

	rows := make([]table.Row, 0, len(results))
	for _, res := range results {
		rows = append(rows, table.Row{res.RuleName, res.Status, res.Severity, res.Message})
	}
	renderTable(w, table.Row{"Rule", "Status", "Severity", "Message"}, rows)
	return nil
}

func runInfo(rec *state.RunRecord) RunInfo {
	return RunInfo{
		RunID:       rec.RunID,
		Dataset:     rec.DatasetName,
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
		TotalRules:  rec.TotalRules,
		FailedRules: rec.FailedRules,
	}
}

func formatFinished(t *time.Time) string {
	if t == nil {
		return "(incomplete)"
	}
	return t.Format(time.RFC3339)
}
