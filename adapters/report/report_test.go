package report

import (
	"bytes"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud-waste/adapters/inventory"
	"cloud-waste/core/engine"
	"cloud-waste/core/ruleconfig"
	"cloud-waste/core/types"
)

func sampleResult() *engine.Result {
	wasted := decimal.RequireFromString("33.60")
	return &engine.Result{
		ScanID:            "scan-1",
		CatalogVersion:    "2024.10",
		PriceTableVersion: "2024.10",
		PriceTableHash:    "0123456789abcdef0123456789abcdef",
		StartedAt:         time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC),
		Duration:          1500 * time.Millisecond,
		ResourcesScanned:  3,
		ResourcesExcluded: 1,
		Findings: []types.Finding{
			{
				ID: "f1", ResourceID: "disk-1", ResourceName: "data-01", ResourceType: types.ResourceDisk,
				ScenarioID: "disk_unattached", Category: types.CategoryState,
				MonthlyCost: decimal.RequireFromString("22.40"), AlreadyWasted: &wasted,
				SavingsPotential: decimal.RequireFromString("22.40"), Currency: "USD",
				Confidence: types.ConfidenceHigh, Recommendation: "Delete data-01.",
			},
			{
				ID: "f2", ResourceID: "disk-1", ResourceName: "data-01", ResourceType: types.ResourceDisk,
				ScenarioID: "disk_oversized", Category: types.CategoryUtilization,
				MonthlyCost: decimal.RequireFromString("22.40"), SavingsPotential: decimal.RequireFromString("12.80"),
				Currency: "USD", Confidence: types.ConfidenceMedium, RelatedTo: "disk_unattached",
			},
		},
		Skips: []types.Skip{
			{ResourceID: "vm-1", ScenarioID: "vm_idle", Kind: types.SkipMetricUnavailable, Reason: "no samples in window"},
		},
		ConfigWarnings: []ruleconfig.Warning{
			{ResourceType: "disk", ScenarioID: "disk_unattached", Field: "min_age_days", Message: "expected int"},
		},
	}
}

func TestBuildSummarizes(t *testing.T) {
	res := sampleResult()
	r := Build(res, res.Findings, nil)
	assert.Equal(t, 2, r.Summary.TotalFindings)
	assert.Equal(t, 1, r.Summary.ResourcesAffected)
	assert.Equal(t, "22.40", r.Summary.TotalMonthlyWaste.StringFixed(2))
	assert.Equal(t, int64(1500), r.DurationMS)
	assert.NotNil(t, r.Rejected)
}

func TestWriteJSON(t *testing.T) {
	res := sampleResult()
	rejected := []inventory.Rejection{{Source: "inv.yaml", Index: 2, ResourceID: "bad", Reason: "unknown resource type"}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(res, res.Findings, rejected), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "scan-1", decoded["scan_id"])
	assert.Len(t, decoded["findings"], 2)
	assert.Len(t, decoded["skips"], 1)
	assert.Len(t, decoded["config_warnings"], 1)
	assert.Len(t, decoded["rejected_records"], 1)

	findings := decoded["findings"].([]any)
	second := findings[1].(map[string]any)
	assert.Equal(t, "disk_unattached", second["related_to"])
	assert.NotContains(t, second, "already_wasted")
}

func TestWriteTable(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(res, res.Findings, nil), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "data-01")
	assert.Contains(t, out, "disk_unattached")
	assert.Contains(t, out, "33.60")
	assert.Contains(t, out, "Delete data-01.")
	assert.Contains(t, out, "SKIPPED RULES")
	assert.Contains(t, out, "min_age_days")
	assert.Contains(t, out, "0123456789ab")
}

func TestWriteMarkdown(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Build(res, res.Findings, nil), FormatMarkdown))

	out := buf.String()
	assert.Contains(t, out, "# Cloud Waste Report")
	assert.Contains(t, out, "| `disk-1` | `disk_oversized` (related to `disk_unattached`) | medium | 22.40 | 12.80 |")
	assert.Contains(t, out, "_1 rule evaluations skipped._")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestEmptyReport(t *testing.T) {
	r := Build(&engine.Result{ScanID: "empty"}, nil, nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r, FormatJSON))
	assert.Contains(t, buf.String(), `"findings": []`)
}
