package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud-waste/core/engine"
	"cloud-waste/internal/config"
)

func TestParseExcludeTags(t *testing.T) {
	got := parseExcludeTags([]string{"keep", "owner=platform", " team = data ", "=orphan"})
	assert.Equal(t, map[string]string{"keep": "", "owner": "platform", "team": "data"}, got)
	assert.Nil(t, parseExcludeTags(nil))
}

func TestEngineOptionsFromConfig(t *testing.T) {
	c := config.Default().Engine
	c.Concurrency = 3
	c.MaxAttempts = 5
	c.RequestsPerSecond = 2.5
	c.SkipMetrics = true

	opts := c.Options()
	assert.Equal(t, 3, opts.Concurrency)
	assert.Equal(t, 5, opts.Retry.MaxAttempts)
	assert.Equal(t, c.CallTimeout, opts.CallTimeout)
	assert.Equal(t, 2.5, opts.RequestsPerSecond)
	assert.True(t, opts.SkipMetrics)
	assert.NotNil(t, opts.Now)
	assert.IsType(t, engine.Options{}, opts)
}

func TestScanCommandWritesReport(t *testing.T) {
	dir := t.TempDir()
	created := time.Now().UTC().AddDate(0, 0, -45).Format(time.RFC3339)
	inv := filepath.Join(dir, "inventory.yaml")
	require.NoError(t, os.WriteFile(inv, []byte(fmt.Sprintf(`
resources:
  - id: disk-1
    type: disk
    name: data-01
    created_at: %s
    attributes:
      state: Unattached
      size_gb: 128
      sku: Premium_LRS
  - id: disk-2
    type: disk
    created_at: %s
    tags:
      keep: "true"
    attributes:
      state: Unattached
      size_gb: 128
      sku: Premium_LRS
  - id: broken
    type: disk
    created_at: %s
`, created, created, created)), 0644))

	rulesDoc := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesDoc, []byte("disk:\n  disk_unattached:\n    min_age_days: 30\n"), 0644))

	out := filepath.Join(dir, "report.json")
	tel := filepath.Join(dir, "scan.prom")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"scan", "-i", inv, "--rules", rulesDoc, "--exclude-tag", "keep",
		"--format", "json", "-o", out, "--telemetry-file", tel,
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded struct {
		Findings []struct {
			ResourceID string `json:"resource_id"`
			ScenarioID string `json:"scenario_id"`
		} `json:"findings"`
		Rejected          []map[string]any `json:"rejected_records"`
		ResourcesExcluded int              `json:"resources_excluded"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Findings, 1)
	assert.Equal(t, "disk-1", decoded.Findings[0].ResourceID)
	assert.Equal(t, "disk_unattached", decoded.Findings[0].ScenarioID)
	assert.Len(t, decoded.Rejected, 1)
	assert.Equal(t, 1, decoded.ResourcesExcluded)

	prom, err := os.ReadFile(tel)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "cloudwaste_findings_total")
}
