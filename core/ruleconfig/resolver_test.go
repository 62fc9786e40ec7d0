package ruleconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloud-waste/core/rules"
	"cloud-waste/internal/errors"
)

func resolveYAML(t *testing.T, doc string) *Effective {
	t.Helper()
	o, err := ParseYAML([]byte(doc))
	require.NoError(t, err)
	return Resolve(rules.DefaultCatalog(), o, zap.NewNop())
}

func TestDefaults(t *testing.T) {
	e := Defaults(rules.DefaultCatalog())
	s, ok := e.Setting("disk_unattached")
	require.True(t, ok)
	assert.True(t, s.Enabled)
	assert.Equal(t, 7, s.Params.Int("min_age_days"))
	assert.Equal(t, 30.0, s.Confidence.High)
	assert.Empty(t, e.Warnings)
}

func TestResolveValidOverrides(t *testing.T) {
	e := resolveYAML(t, `
disk:
  disk_unattached:
    min_age_days: 14
    confidence:
      medium: 10
  unnecessary_zrs:
    enabled: false
    dev_environment_keywords: [dev, lab]
snapshot:
  snapshot_redundant:
    max_snapshots_per_disk: 5
`)
	assert.Empty(t, e.Warnings)

	s, _ := e.Setting("disk_unattached")
	assert.Equal(t, 14, s.Params.Int("min_age_days"))
	assert.Equal(t, 10.0, s.Confidence.Medium)
	assert.Equal(t, 30.0, s.Confidence.High)

	s, _ = e.Setting("unnecessary_zrs")
	assert.False(t, s.Enabled)
	assert.Equal(t, []string{"dev", "lab"}, s.Params.Strings("dev_environment_keywords"))

	s, _ = e.Setting("snapshot_redundant")
	assert.Equal(t, 5, s.Params.Int("max_snapshots_per_disk"))

	s, _ = e.Setting("no_subnet")
	assert.True(t, s.Enabled)
}

func TestResolveInvalidValuesKeepDefaults(t *testing.T) {
	e := resolveYAML(t, `
disk:
  disk_unattached:
    min_age_days: "two weeks"
    enabled: maybe
  disk_oversized:
    max_utilization_percent: 250
nat_gateway:
  no_subnet:
    confidence: {medium: 40, high: 14, critical: 30}
`)
	require.Len(t, e.Warnings, 4)

	s, _ := e.Setting("disk_unattached")
	assert.True(t, s.Enabled)
	assert.Equal(t, 7, s.Params.Int("min_age_days"))

	s, _ = e.Setting("disk_oversized")
	assert.Equal(t, 10.0, s.Params.Float("max_utilization_percent"))

	s, _ = e.Setting("no_subnet")
	assert.Equal(t, 7.0, s.Confidence.Medium)
	assert.Equal(t, 14.0, s.Confidence.High)

	// sorted by type, scenario, field
	assert.Equal(t, "disk_oversized", e.Warnings[0].ScenarioID)
	assert.Equal(t, "enabled", e.Warnings[1].Field)
	assert.Equal(t, "min_age_days", e.Warnings[2].Field)
	assert.Equal(t, "no_subnet", e.Warnings[3].ScenarioID)
	assert.Contains(t, e.Warnings[3].String(), "nat_gateway.no_subnet.confidence")
}

func TestResolveIgnoresUnknownKeys(t *testing.T) {
	e := resolveYAML(t, `
bucket:
  anything: {enabled: false}
disk:
  no_such_scenario: {enabled: false}
  no_subnet: {enabled: false}
  disk_unattached:
    colour: blue
`)
	assert.Empty(t, e.Warnings)
	s, _ := e.Setting("no_subnet")
	assert.True(t, s.Enabled, "scenario under the wrong type is ignored")
}

func TestParseHCL(t *testing.T) {
	src := `
rule "disk" "disk_unattached" {
  enabled      = true
  min_age_days = 21
  confidence   = { medium = 10, high = 40, critical = 120 }
}

rule "app_service_plan" "app_service_plan_premium_dev" {
  enabled                  = false
  dev_environment_keywords = ["dev", "uat"]
}
`
	o, err := ParseHCL([]byte(src), "rules.hcl")
	require.NoError(t, err)

	e := Resolve(rules.DefaultCatalog(), o, zap.NewNop())
	assert.Empty(t, e.Warnings)

	s, _ := e.Setting("disk_unattached")
	assert.Equal(t, 21, s.Params.Int("min_age_days"))
	assert.Equal(t, 120.0, s.Confidence.Critical)

	s, _ = e.Setting("app_service_plan_premium_dev")
	assert.False(t, s.Enabled)
	assert.Equal(t, []string{"dev", "uat"}, s.Params.Strings("dev_environment_keywords"))
}

func TestParseHCLErrors(t *testing.T) {
	_, err := ParseHCL([]byte(`rule "disk" {`), "broken.hcl")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))

	_, err = ParseHCL([]byte(`rule "disk" "disk_unattached" { min_age_days = var.days }`), "vars.hcl")
	assert.Error(t, err)
}

func TestParseYAMLErrors(t *testing.T) {
	_, err := ParseYAML([]byte("disk: [unbalanced"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))

	o, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, o)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "rules.yaml")
	hclPath := filepath.Join(dir, "rules.hcl")
	require.NoError(t, os.WriteFile(yamlPath, []byte("disk:\n  disk_unattached:\n    min_age_days: 3\n"), 0o600))
	require.NoError(t, os.WriteFile(hclPath, []byte("rule \"disk\" \"disk_unattached\" {\n  min_age_days = 4\n}\n"), 0o600))

	o, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 3, o["disk"]["disk_unattached"]["min_age_days"])

	o, err = Load(hclPath)
	require.NoError(t, err)
	assert.Equal(t, 4.0, o["disk"]["disk_unattached"]["min_age_days"])

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}
