package monitoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud-waste/core/metrics"
	"cloud-waste/internal/errors"
)

var now = time.Date(2024, 10, 15, 12, 30, 0, 0, time.UTC)

func query(resourceID, metric string, agg metrics.Aggregation) metrics.Query {
	return metrics.Query{
		ResourceID:  resourceID,
		MetricName:  metric,
		Aggregation: agg,
		Window:      metrics.LookbackWindow(now, 14),
	}
}

func TestLoadYAMLFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
series:
  - resource_id: vm-1
    metric: cpu_percentage
    hourly:
      value: 3
      hours: 48
  - resource_id: vm-2
    metric: cpu_percentage
    points:
      - timestamp: 2024-10-15T10:00:00Z
        value: 10
      - timestamp: 2024-10-15T11:00:00Z
        value: 30
`), 0644))

	gw, err := LoadFile(path, now)
	require.NoError(t, err)

	res, err := gw.Query(context.Background(), query("vm-1", metrics.CPUPercentage, metrics.Average))
	require.NoError(t, err)
	assert.False(t, res.Unavailable)
	assert.Equal(t, 48, res.SampleCount)
	assert.Equal(t, 3.0, res.Value)

	res, err = gw.Query(context.Background(), query("vm-2", metrics.CPUPercentage, metrics.Maximum))
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Value)

	res, err = gw.Query(context.Background(), query("vm-3", metrics.CPUPercentage, metrics.Average))
	require.NoError(t, err)
	assert.True(t, res.Unavailable)
}

func TestLoadJSONFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"series": [
		{"resource_id": "nat-1", "metric": "nat_bytes_total", "hourly": {"value": 1024, "hours": 24}}
	]}`), 0644))

	gw, err := LoadFile(path, now)
	require.NoError(t, err)
	res, err := gw.Query(context.Background(), query("nat-1", metrics.NATBytesTotal, metrics.Total))
	require.NoError(t, err)
	assert.Equal(t, 24*1024.0, res.Value)
}

func TestFixtureErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), now)
	assert.True(t, errors.IsType(err, errors.TypeInput))

	f, err := Parse([]byte("series:\n  - metric: cpu_percentage\n"), false)
	require.NoError(t, err)
	err = f.Load(metrics.NewStaticGateway(), now)
	assert.True(t, errors.IsType(err, errors.TypeInput))

	_, err = Parse([]byte("{"), true)
	assert.True(t, errors.IsType(err, errors.TypeInput))
}
