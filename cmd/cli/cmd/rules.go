package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cloud-waste/core/rules"
	"cloud-waste/core/types"
)

var rulesType string

// rulesCmd lists the rule catalog
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List waste scenarios and their default thresholds",
	Long: `List every scenario in the rule catalog with its category, evaluation
phase and default parameters. Parameters can be overridden per resource type
and scenario in a YAML or HCL rules document passed to "scan --rules".`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesType, "type", "t", "", "only list scenarios for this resource type")
}

func runRules(cmd *cobra.Command, args []string) error {
	catalog := rules.DefaultCatalog()
	list := catalog.Rules()
	if rulesType != "" {
		rt, err := types.ParseResourceType(rulesType)
		if err != nil {
			return err
		}
		list = catalog.ForType(rt)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("Rule catalog %s", catalog.Version()))
	tw.AppendHeader(table.Row{"Scenario", "Types", "Category", "Phase", "Parameters", "Description"})
	for _, r := range list {
		tw.AppendRow(table.Row{
			r.ScenarioID,
			joinTypes(r.AppliesTo),
			r.Category,
			phaseName(r.Phase()),
			formatParams(r.Params),
			r.Description,
		})
	}
	tw.Render()
	return nil
}

func joinTypes(ts []types.ResourceType) string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return strings.Join(out, ", ")
}

func phaseName(p rules.Phase) string {
	if p == rules.PhaseMetrics {
		return "metrics"
	}
	return "attributes"
}

func formatParams(specs []rules.ParamSpec) string {
	lines := make([]string, 0, len(specs))
	for _, p := range specs {
		def := fmt.Sprint(p.Default)
		if list, ok := p.Default.([]string); ok {
			def = "[" + strings.Join(list, ",") + "]"
		}
		lines = append(lines, p.Name+"="+def)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
