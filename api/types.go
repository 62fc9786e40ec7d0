package api

import (
	"cloud-waste/adapters/inventory"
	"cloud-waste/adapters/monitoring"
	"cloud-waste/core/ruleconfig"
)

// ScanRequest is the body of POST /scan
type ScanRequest struct {
	// Resources are raw snapshots in the inventory record format
	Resources []inventory.Record `json:"resources"`

	// Metrics are optional recorded series; without them only attribute
	// rules run
	Metrics *monitoring.Fixture `json:"metrics,omitempty"`

	// Overrides are per-type, per-scenario rule settings
	Overrides ruleconfig.Overrides `json:"overrides,omitempty"`

	Options ScanOptions `json:"options"`
}

// ScanOptions tune one request
type ScanOptions struct {
	SkipMetrics        bool              `json:"skip_metrics"`
	ExcludeResourceIDs []string          `json:"exclude_resource_ids"`
	ExcludeTags        map[string]string `json:"exclude_tags"`
	MinMonthlyCost     float64           `json:"min_monthly_cost"`
	MinConfidence      string            `json:"min_confidence"`
}

// ResponseMetadata describes how a response was produced
type ResponseMetadata struct {
	InputHash     string `json:"input_hash"`
	EngineVersion string `json:"engine_version"`
	DurationMs    int64  `json:"duration_ms"`
}

// RuleInfo describes one catalog scenario
type RuleInfo struct {
	ScenarioID  string         `json:"scenario_id"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Phase       string         `json:"phase"`
	AppliesTo   []string       `json:"applies_to"`
	Params      map[string]any `json:"params"`
}

// ErrorBody is the error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
