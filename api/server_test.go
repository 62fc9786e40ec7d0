package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloud-waste/core/engine"
)

var now = time.Date(2024, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.Now = func() time.Time { return now }
	s, err := NewServer(Config{
		Version:  "test",
		Options:  opts,
		Logger:   zap.NewNop(),
		Registry: prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

const scanBody = `{
  "resources": [
    {"id": "disk-1", "type": "disk", "name": "data-01", "created_at": "2024-08-31T12:00:00Z",
     "attributes": {"state": "Unattached", "size_gb": 128, "sku": "Premium_LRS"}},
    {"id": "vm-1", "type": "virtual_machine", "created_at": "2024-08-01T00:00:00Z",
     "attributes": {"vm_size": "Standard_D4s_v3", "power_state": "running"}},
    {"id": "bad", "type": "queue", "created_at": "2024-08-01T00:00:00Z"}
  ],
  "metrics": {"series": [
    {"resource_id": "vm-1", "metric": "cpu_percentage", "hourly": {"value": 1, "hours": 300}}
  ]},
  "overrides": {"virtual_machine": {"vm_idle": {"max_utilization_percent": 3}}}
}`

func TestScanEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(scanBody)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ScanID   string `json:"scan_id"`
		Findings []struct {
			ResourceID  string `json:"resource_id"`
			ScenarioID  string `json:"scenario_id"`
			MonthlyCost string `json:"monthly_cost"`
		} `json:"findings"`
		Rejected []map[string]any `json:"rejected_records"`
		Metadata ResponseMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ScanID)
	assert.Len(t, resp.Rejected, 1)
	assert.Len(t, resp.Metadata.InputHash, 64)
	assert.Equal(t, "test", resp.Metadata.EngineVersion)

	got := map[string]string{}
	for _, f := range resp.Findings {
		got[f.ResourceID+"/"+f.ScenarioID] = f.MonthlyCost
	}
	assert.Equal(t, "22.4", got["disk-1/disk_unattached"])
	assert.Contains(t, got, "vm-1/vm_idle")

	metrics := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "cloudwaste_findings_total")
}

func TestScanValidation(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")

	rec = do(t, s, http.MethodPost, "/scan", ScanRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = httptest.NewRecorder()
	body := `{"resources": [{"id": "x", "type": "disk"}], "options": {"min_confidence": "sure"}}`
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanFiltersByConfidence(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(scanBody, `"overrides"`, `"options": {"min_confidence": "critical"}, "overrides"`, 1)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Findings []map[string]any `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	for _, f := range resp.Findings {
		if _, related := f["related_to"]; related {
			continue
		}
		assert.Equal(t, "critical", f["confidence"])
	}
}

func TestRulesAndVersion(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rules struct {
		CatalogVersion string     `json:"catalog_version"`
		Rules          []RuleInfo `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.Equal(t, "2024.10", rules.CatalogVersion)
	assert.Len(t, rules.Rules, 21)
	assert.Equal(t, "disk_unattached", rules.Rules[0].ScenarioID)

	rec = do(t, s, http.MethodGet, "/version", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "price_table_hash")

	rec = do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
