// Package rules defines detection rules and the immutable, versioned
// catalog of waste scenarios.
//
// Rules are pure: predicates, cost and signal functions read the snapshot,
// resolved thresholds and prefetched metrics, and never perform I/O.
package rules

import (
	"bytes"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"cloud-waste/core/confidence"
	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/types"
)

// Phase separates attribute-only rules from metric-based rules
type Phase int

const (
	// PhaseAttributes rules read only the snapshot and its siblings
	PhaseAttributes Phase = 1
	// PhaseMetrics rules need metric series
	PhaseMetrics Phase = 2
)

// MetricRequirement declares one metric a rule reads
type MetricRequirement struct {
	Metric      string
	Aggregation metrics.Aggregation

	// LookbackParam names the integer param holding the window in days
	LookbackParam string
}

// Key identifies the requirement in Input.Metrics
func (m MetricRequirement) Key() string {
	return m.Metric + ":" + string(m.Aggregation)
}

// Input is everything a rule may read while evaluating one resource
type Input struct {
	Resource *types.Resource
	Now      time.Time
	Params   Values
	Pricing  *pricing.Model

	// Metrics holds available results keyed by MetricRequirement.Key
	Metrics map[string]metrics.Result

	// Group is set for counting rules when the resource has a grouping key
	Group *Group
}

// Metric returns the result for a requirement
func (in *Input) Metric(metric string, agg metrics.Aggregation) metrics.Result {
	return in.Metrics[MetricRequirement{Metric: metric, Aggregation: agg}.Key()]
}

// Days returns the days the resource has been in its current state
func (in *Input) Days() int {
	return in.Resource.DaysInState(in.Now)
}

// Cost is the priced outcome of a matching rule
type Cost struct {
	Monthly decimal.Decimal

	// AlreadyWasted is nil when the rule does not estimate past spend
	AlreadyWasted *decimal.Decimal

	Savings decimal.Decimal

	// ClaimsSavings marks rules whose finding exists only if Savings > 0
	ClaimsSavings bool

	Metadata map[string]string
}

// Rule is one waste scenario. Rules are owned by a Catalog and must not be
// modified after it is built.
type Rule struct {
	ScenarioID  string
	Description string
	Category    types.Category
	AppliesTo   []types.ResourceType

	// RequiredAttributes must all be present or the rule silently does not apply
	RequiredAttributes []string
	RequiredMetrics    []MetricRequirement

	// GroupBy is set for counting rules
	GroupBy *Grouping

	Params     []ParamSpec
	Confidence confidence.Breakpoints

	// Precondition is an optional attribute-only check run before any metric
	// is fetched. Metric rules use it so resources that can never match cost
	// no gateway calls.
	Precondition func(in *Input) bool

	Predicate func(in *Input) (bool, error)
	Cost      func(in *Input) (Cost, error)
	Signal    func(in *Input) float64

	// Recommendation is a text/template rendered with RecommendationData
	Recommendation string

	tmpl *template.Template
}

// Phase reports whether the rule needs metrics
func (r *Rule) Phase() Phase {
	if len(r.RequiredMetrics) > 0 {
		return PhaseMetrics
	}
	return PhaseAttributes
}

// Applies reports whether the rule targets resource type t
func (r *Rule) Applies(t types.ResourceType) bool {
	for _, at := range r.AppliesTo {
		if at == t {
			return true
		}
	}
	return false
}

// Ready reports whether the precondition holds. Rules without one are
// always ready.
func (r *Rule) Ready(in *Input) bool {
	return r.Precondition == nil || r.Precondition(in)
}

// HasRequiredAttributes reports whether res carries every required key
func (r *Rule) HasRequiredAttributes(res *types.Resource) bool {
	for _, key := range r.RequiredAttributes {
		if !res.Attributes.Has(key) {
			return false
		}
	}
	return true
}

// RecommendationData is the template context for recommendations
type RecommendationData struct {
	Resource *types.Resource
	Params   Values
	Cost     Cost
	Days     int
	Currency string
}

// Param returns a resolved threshold for use in templates
func (d RecommendationData) Param(name string) any {
	v, _ := d.Params.Get(name)
	return v
}

// Meta returns a metadata value for use in templates
func (d RecommendationData) Meta(key string) string {
	return d.Cost.Metadata[key]
}

// Render produces the remediation text
func (r *Rule) Render(data RecommendationData) (string, error) {
	if r.tmpl == nil {
		return r.Recommendation, nil
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
