// Package report renders scan results for humans and machines.
// Renderers only format; filtering and ordering happen before Build.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"cloud-waste/adapters/inventory"
	"cloud-waste/core/dedup"
	"cloud-waste/core/engine"
	"cloud-waste/core/ruleconfig"
	"cloud-waste/core/types"
)

// Format specifies the output format
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Report is the serializable outcome of a scan
type Report struct {
	ScanID            string    `json:"scan_id"`
	GeneratedAt       time.Time `json:"generated_at"`
	DurationMS        int64     `json:"duration_ms"`
	CatalogVersion    string    `json:"catalog_version"`
	PriceTableVersion string    `json:"price_table_version"`
	PriceTableHash    string    `json:"price_table_hash"`

	ResourcesScanned  int  `json:"resources_scanned"`
	ResourcesDropped  int  `json:"resources_dropped"`
	ResourcesExcluded int  `json:"resources_excluded"`
	Interrupted       bool `json:"interrupted"`

	Summary  dedup.Summary   `json:"summary"`
	Findings []types.Finding `json:"findings"`

	Skips          []types.Skip          `json:"skips"`
	ConfigWarnings []ruleconfig.Warning  `json:"config_warnings"`
	Rejected       []inventory.Rejection `json:"rejected_records"`
}

// Build assembles a report from a scan result and the findings to publish.
// findings is usually result.Findings after output filters.
func Build(result *engine.Result, findings []types.Finding, rejected []inventory.Rejection) *Report {
	if findings == nil {
		findings = []types.Finding{}
	}
	return &Report{
		ScanID:            result.ScanID,
		GeneratedAt:       result.StartedAt,
		DurationMS:        result.Duration.Milliseconds(),
		CatalogVersion:    result.CatalogVersion,
		PriceTableVersion: result.PriceTableVersion,
		PriceTableHash:    result.PriceTableHash,
		ResourcesScanned:  result.ResourcesScanned,
		ResourcesDropped:  result.ResourcesDropped,
		ResourcesExcluded: result.ResourcesExcluded,
		Interrupted:       result.Interrupted,
		Summary:           dedup.Summarize(findings),
		Findings:          findings,
		Skips:             nonNil(result.Skips),
		ConfigWarnings:    nonNil(result.ConfigWarnings),
		Rejected:          nonNil(rejected),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Write renders r in the given format
func Write(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatMarkdown:
		return writeMarkdown(w, r)
	default:
		return writeTable(w, r)
	}
}

func writeJSON(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func currency(r *Report) string {
	if len(r.Findings) > 0 {
		return r.Findings[0].Currency
	}
	return "USD"
}

func writeTable(w io.Writer, r *Report) error {
	cur := currency(r)

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Scan %s  catalog %s  prices %s (%s)\n",
		r.ScanID, r.CatalogVersion, r.PriceTableVersion, shortHash(r.PriceTableHash))
	fmt.Fprintf(w, "Resources: %d scanned, %d excluded, %d dropped\n",
		r.ResourcesScanned, r.ResourcesExcluded, r.ResourcesDropped)
	if r.Interrupted {
		fmt.Fprintln(w, text.FgYellow.Sprint("Scan was interrupted; results are partial."))
	}
	fmt.Fprintln(w, "")

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Resource", "Type", "Scenario", "Confidence", "Monthly", "Savings", "Wasted"})
	for _, f := range r.Findings {
		name := f.ResourceName
		if name == "" {
			name = f.ResourceID
		}
		scenario := f.ScenarioID
		if !f.IsPrimary() {
			name = "  └─ " + name
			scenario = text.Faint.Sprint(scenario)
		}
		wasted := "-"
		if f.AlreadyWasted != nil {
			wasted = f.AlreadyWasted.StringFixed(2)
		}
		tw.AppendRow(table.Row{
			truncate(name, 48),
			f.ResourceType,
			scenario,
			colorConfidence(f.Confidence),
			f.MonthlyCost.StringFixed(2),
			f.SavingsPotential.StringFixed(2),
			wasted,
		})
	}
	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d findings", r.Summary.TotalFindings),
		fmt.Sprintf("%d resources", r.Summary.ResourcesAffected),
		"", "",
		r.Summary.TotalMonthlyWaste.StringFixed(2) + " " + cur,
		r.Summary.TotalSavings.StringFixed(2) + " " + cur,
		r.Summary.AlreadyWasted.StringFixed(2) + " " + cur,
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 6, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 7, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	tw.Render()
	fmt.Fprintln(w, "")

	if len(r.Findings) > 0 {
		fmt.Fprintln(w, "RECOMMENDATIONS")
		for _, f := range r.Findings {
			if f.IsPrimary() {
				fmt.Fprintf(w, "• [%s] %s\n", f.ScenarioID, f.Recommendation)
			}
		}
		fmt.Fprintln(w, "")
	}

	if len(r.Skips) > 0 {
		fmt.Fprintln(w, "SKIPPED RULES")
		st := table.NewWriter()
		st.SetOutputMirror(w)
		st.SetStyle(table.StyleLight)
		st.AppendHeader(table.Row{"Resource", "Scenario", "Kind", "Reason"})
		for _, s := range r.Skips {
			st.AppendRow(table.Row{truncate(s.ResourceID, 48), s.ScenarioID, s.Kind, truncate(s.Reason, 60)})
		}
		st.Render()
		fmt.Fprintln(w, "")
	}

	if len(r.ConfigWarnings) > 0 || len(r.Rejected) > 0 {
		fmt.Fprintln(w, "WARNINGS")
		for _, cw := range r.ConfigWarnings {
			fmt.Fprintf(w, "⚠ config %s\n", cw)
		}
		for _, rj := range r.Rejected {
			fmt.Fprintf(w, "⚠ rejected %s[%d] %s: %s\n", rj.Source, rj.Index, rj.ResourceID, rj.Reason)
		}
		fmt.Fprintln(w, "")
	}
	return nil
}

func writeMarkdown(w io.Writer, r *Report) error {
	cur := currency(r)
	fmt.Fprintln(w, "# Cloud Waste Report")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "**Monthly waste:** %s %s\n", r.Summary.TotalMonthlyWaste.StringFixed(2), cur)
	fmt.Fprintf(w, "**Savings potential:** %s %s\n", r.Summary.TotalSavings.StringFixed(2), cur)
	fmt.Fprintf(w, "**Resources affected:** %d of %d scanned\n", r.Summary.ResourcesAffected, r.ResourcesScanned)
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, "## Findings")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "| Resource | Scenario | Confidence | Monthly | Savings |")
	fmt.Fprintln(w, "|----------|----------|------------|---------|---------|")
	for _, f := range r.Findings {
		scenario := "`" + f.ScenarioID + "`"
		if !f.IsPrimary() {
			scenario += " (related to `" + f.RelatedTo + "`)"
		}
		fmt.Fprintf(w, "| `%s` | %s | %s | %s | %s |\n",
			f.ResourceID, scenario, f.Confidence, f.MonthlyCost.StringFixed(2), f.SavingsPotential.StringFixed(2))
	}

	if len(r.Skips) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "_%d rule evaluations skipped._\n", len(r.Skips))
	}
	return nil
}

func colorConfidence(c types.Confidence) string {
	switch c {
	case types.ConfidenceCritical:
		return text.FgHiRed.Sprint(c)
	case types.ConfidenceHigh:
		return text.FgRed.Sprint(c)
	case types.ConfidenceMedium:
		return text.FgYellow.Sprint(c)
	default:
		return string(c)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
