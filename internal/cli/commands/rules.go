package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datatide-labs/datatide/pkg/rules"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Tag  string // Filter by tag
	JSON bool   // Machine-readable output
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List available rule types",
		Long: `List the rule types that suites can declare, with their tags.

Tags drive selector filtering: a suite's include_tags and exclude_tags
match against the tags shown here.`,
		Example: `  # List all rule types
  datatide rules

  # List rule types tagged integrity
  datatide rules --tag integrity

  # Output as JSON
  datatide rules --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Tag, "tag", "t", "", "Only show rule types carrying this tag")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output as JSON")

	return cmd
}

// RuleTypeInfo is the JSON shape of one registry entry.
type RuleTypeInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	defs := rules.DefaultRegistry().List(opts.Tag)

	if opts.JSON {
		infos := make([]RuleTypeInfo, 0, len(defs))
		for _, def := range defs {
			infos = append(infos, RuleTypeInfo{
				Name:        def.Name,
				Description: def.Description,
				Tags:        def.Tags,
			})
		}
		return writeJSON(cmd.OutOrStdout(), infos)
	}

	rows := make([]table.Row, 0, len(defs))
	for _, def := range defs {
		rows = append(rows, table.Row{def.Name, strings.Join(def.Tags, ", "), def.Description})
	}
	renderTable(cmd.OutOrStdout(), table.Row{"Type", "Tags", "Description"}, rows)
	return nil
}
