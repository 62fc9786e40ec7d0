// Package dedup merges co-occurring findings on one resource and orders the
// batch for output.
package dedup

import (
	"sort"

	"cloud-waste/core/types"
)

// less orders findings of one resource: category priority, then monthly
// cost descending, then scenario ID.
func less(a, b *types.Finding) bool {
	if pa, pb := a.Category.Priority(), b.Category.Priority(); pa != pb {
		return pa > pb
	}
	if c := a.MonthlyCost.Cmp(b.MonthlyCost); c != 0 {
		return c > 0
	}
	return a.ScenarioID < b.ScenarioID
}

// Resource deduplicates the findings of a single resource. Exact duplicates
// (same scenario) are dropped, the highest priority finding becomes primary
// and every other finding is linked to it through RelatedTo.
func Resource(findings []types.Finding) []types.Finding {
	seen := make(map[string]bool, len(findings))
	out := make([]types.Finding, 0, len(findings))
	for _, f := range findings {
		if seen[f.ScenarioID] {
			continue
		}
		seen[f.ScenarioID] = true
		f.RelatedTo = ""
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	for i := 1; i < len(out); i++ {
		out[i].RelatedTo = out[0].ScenarioID
	}
	return out
}

// Batch deduplicates per resource and orders resources by their primary
// finding: monthly cost descending, confidence descending, resource ID
// ascending. Findings of one resource stay contiguous.
func Batch(findings []types.Finding) []types.Finding {
	byResource := make(map[string][]types.Finding)
	for _, f := range findings {
		byResource[f.ResourceID] = append(byResource[f.ResourceID], f)
	}

	groups := make([][]types.Finding, 0, len(byResource))
	for _, fs := range byResource {
		groups = append(groups, Resource(fs))
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := &groups[i][0], &groups[j][0]
		if c := a.MonthlyCost.Cmp(b.MonthlyCost); c != 0 {
			return c > 0
		}
		if ra, rb := a.Confidence.Rank(), b.Confidence.Rank(); ra != rb {
			return ra > rb
		}
		return a.ResourceID < b.ResourceID
	})

	out := make([]types.Finding, 0, len(findings))
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
