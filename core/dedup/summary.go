package dedup

import (
	"github.com/shopspring/decimal"

	"cloud-waste/core/types"
)

// Summary aggregates an ordered finding batch
type Summary struct {
	TotalFindings     int                        `json:"total_findings"`
	ResourcesAffected int                        `json:"resources_affected"`
	TotalMonthlyWaste decimal.Decimal            `json:"total_monthly_waste"`
	TotalSavings      decimal.Decimal            `json:"total_savings"`
	AlreadyWasted     decimal.Decimal            `json:"already_wasted"`
	ByConfidence      map[types.Confidence]int   `json:"by_confidence"`
	ByScenario        map[string]int             `json:"by_scenario"`
	ByResourceType    map[types.ResourceType]int `json:"by_resource_type"`
}

// Summarize totals a batch. Money totals count only primary findings, so a
// resource with related findings is not double counted.
func Summarize(findings []types.Finding) Summary {
	s := Summary{
		TotalMonthlyWaste: decimal.Zero,
		TotalSavings:      decimal.Zero,
		AlreadyWasted:     decimal.Zero,
		ByConfidence:      make(map[types.Confidence]int),
		ByScenario:        make(map[string]int),
		ByResourceType:    make(map[types.ResourceType]int),
	}
	for _, f := range findings {
		s.TotalFindings++
		s.ByConfidence[f.Confidence]++
		s.ByScenario[f.ScenarioID]++
		if !f.IsPrimary() {
			continue
		}
		s.ResourcesAffected++
		s.ByResourceType[f.ResourceType]++
		s.TotalMonthlyWaste = s.TotalMonthlyWaste.Add(f.MonthlyCost)
		s.TotalSavings = s.TotalSavings.Add(f.SavingsPotential)
		if f.AlreadyWasted != nil {
			s.AlreadyWasted = s.AlreadyWasted.Add(*f.AlreadyWasted)
		}
	}
	return s
}

// FilterMinCost keeps the findings of resources whose primary finding costs
// at least threshold per month. Related findings follow their primary.
func FilterMinCost(findings []types.Finding, threshold decimal.Decimal) []types.Finding {
	if !threshold.IsPositive() {
		return findings
	}
	return keepResources(findings, func(primary *types.Finding) bool {
		return primary.MonthlyCost.GreaterThanOrEqual(threshold)
	})
}

// FilterMinConfidence keeps the findings of resources whose primary
// finding is graded at least threshold
func FilterMinConfidence(findings []types.Finding, threshold types.Confidence) []types.Finding {
	if !threshold.IsValid() {
		return findings
	}
	return keepResources(findings, func(primary *types.Finding) bool {
		return primary.Confidence.Rank() >= threshold.Rank()
	})
}

func keepResources(findings []types.Finding, keepPrimary func(*types.Finding) bool) []types.Finding {
	keep := make(map[string]bool)
	for i := range findings {
		if findings[i].IsPrimary() && keepPrimary(&findings[i]) {
			keep[findings[i].ResourceID] = true
		}
	}
	out := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if keep[f.ResourceID] {
			out = append(out, f)
		}
	}
	return out
}
