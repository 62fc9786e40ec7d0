package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud-waste/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloud-waste.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  concurrency: 2
  scan_timeout: 90s
  skip_metrics: true
output:
  format: json
  min_monthly_cost: 5
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Engine.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Engine.ScanTimeout)
	assert.True(t, cfg.Engine.SkipMetrics)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, 5.0, cfg.Output.MinMonthlyCost)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Engine.MaxAttempts)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLOUDWASTE_ENGINE_CONCURRENCY", "16")
	t.Setenv("CLOUDWASTE_OUTPUT_FORMAT", "markdown")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Engine.Concurrency)
	assert.Equal(t, FormatMarkdown, cfg.Output.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero concurrency", "engine:\n  concurrency: 0\n"},
		{"unknown format", "output:\n  format: xml\n"},
		{"unknown confidence", "output:\n  min_confidence: certain\n"},
		{"negative min cost", "output:\n  min_monthly_cost: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeConfig))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeConfig))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cloud-waste.yaml")
	cfg := Default()
	cfg.Engine.RequestsPerSecond = 20
	cfg.Pricing.TablePath = "/etc/cloud-waste/prices.yaml"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
