package types

import "github.com/shopspring/decimal"

// Finding is a flat, serializable waste record for one resource and scenario
type Finding struct {
	// ID is deterministic over resource, scenario and rule version
	ID string `json:"id" yaml:"id"`

	ResourceID   string       `json:"resource_id" yaml:"resource_id"`
	ResourceType ResourceType `json:"resource_type" yaml:"resource_type"`
	ResourceName string       `json:"resource_name,omitempty" yaml:"resource_name,omitempty"`

	ScenarioID string   `json:"scenario_id" yaml:"scenario_id"`
	Category   Category `json:"category" yaml:"category"`

	// MonthlyCost is the current monthly cost of the resource
	MonthlyCost decimal.Decimal `json:"monthly_cost" yaml:"monthly_cost"`

	// AlreadyWasted is set only by rules that can bound past spend
	AlreadyWasted *decimal.Decimal `json:"already_wasted,omitempty" yaml:"already_wasted,omitempty"`

	// SavingsPotential is the monthly amount recoverable by the recommendation
	SavingsPotential decimal.Decimal `json:"savings_potential" yaml:"savings_potential"`

	Currency   string     `json:"currency" yaml:"currency"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`

	Recommendation string            `json:"recommendation" yaml:"recommendation"`
	Metadata       map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// RelatedTo names the primary scenario on the same resource
	RelatedTo string `json:"related_to,omitempty" yaml:"related_to,omitempty"`

	PriceTableVersion string `json:"price_table_version" yaml:"price_table_version"`
}

// IsPrimary reports whether the finding heads its resource group
func (f *Finding) IsPrimary() bool {
	return f.RelatedTo == ""
}

// SkipKind classifies why a rule did not produce a finding
type SkipKind string

const (
	// SkipMetricUnavailable means a required metric had no usable data
	SkipMetricUnavailable SkipKind = "metric_unavailable"
	// SkipRuleError means the rule returned an error or panicked
	SkipRuleError SkipKind = "rule_error"
	// SkipPhaseDisabled means metric-based rules were turned off for the scan
	SkipPhaseDisabled SkipKind = "phase_disabled"
	// SkipCancelled means the resource was dropped by scan cancellation
	SkipCancelled SkipKind = "cancelled"
)

// Skip is a transparency record for a rule that could not be evaluated
type Skip struct {
	ResourceID string   `json:"resource_id" yaml:"resource_id"`
	ScenarioID string   `json:"scenario_id,omitempty" yaml:"scenario_id,omitempty"`
	Kind       SkipKind `json:"kind" yaml:"kind"`
	Reason     string   `json:"reason" yaml:"reason"`
}
