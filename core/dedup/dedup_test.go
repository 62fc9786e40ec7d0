package dedup

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud-waste/core/types"
)

func finding(resourceID, scenario string, cat types.Category, cost string, conf types.Confidence) types.Finding {
	c := decimal.RequireFromString(cost)
	return types.Finding{
		ID:               resourceID + "/" + scenario,
		ResourceID:       resourceID,
		ResourceType:     types.ResourceDisk,
		ScenarioID:       scenario,
		Category:         cat,
		MonthlyCost:      c,
		SavingsPotential: c,
		Confidence:       conf,
	}
}

func scenarios(fs []types.Finding) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ResourceID + ":" + f.ScenarioID
	}
	return out
}

func TestResourceStateBeatsUtilization(t *testing.T) {
	out := Resource([]types.Finding{
		finding("d1", "disk_oversized", types.CategoryUtilization, "50.00", types.ConfidenceHigh),
		finding("d1", "disk_unattached", types.CategoryState, "22.40", types.ConfidenceHigh),
	})
	require.Len(t, out, 2)
	assert.Equal(t, "disk_unattached", out[0].ScenarioID)
	assert.True(t, out[0].IsPrimary())
	assert.Equal(t, "disk_oversized", out[1].ScenarioID)
	assert.Equal(t, "disk_unattached", out[1].RelatedTo)
}

func TestResourceTieBreaks(t *testing.T) {
	out := Resource([]types.Finding{
		finding("d1", "b_hygiene", types.CategoryHygiene, "5.00", types.ConfidenceLow),
		finding("d1", "a_hygiene", types.CategoryHygiene, "5.00", types.ConfidenceLow),
		finding("d1", "c_hygiene", types.CategoryHygiene, "9.00", types.ConfidenceLow),
	})
	assert.Equal(t, []string{"d1:c_hygiene", "d1:a_hygiene", "d1:b_hygiene"}, scenarios(out))
}

func TestResourceDropsExactDuplicates(t *testing.T) {
	f := finding("d1", "disk_unattached", types.CategoryState, "22.40", types.ConfidenceHigh)
	out := Resource([]types.Finding{f, f})
	require.Len(t, out, 1)
	assert.True(t, out[0].IsPrimary())
}

func TestBatchOrdering(t *testing.T) {
	out := Batch([]types.Finding{
		finding("b", "x", types.CategoryState, "10.00", types.ConfidenceHigh),
		finding("a", "x", types.CategoryState, "10.00", types.ConfidenceHigh),
		finding("c", "x", types.CategoryState, "10.00", types.ConfidenceCritical),
		finding("big", "y", types.CategoryHygiene, "5.00", types.ConfidenceLow),
		finding("big", "x", types.CategoryState, "99.00", types.ConfidenceLow),
	})
	assert.Equal(t, []string{"big:x", "big:y", "c:x", "a:x", "b:x"}, scenarios(out))
	assert.Equal(t, "x", out[1].RelatedTo)
}

func TestBatchIsOrderIndependent(t *testing.T) {
	in := []types.Finding{
		finding("a", "x", types.CategoryState, "1.00", types.ConfidenceLow),
		finding("b", "y", types.CategoryHygiene, "2.00", types.ConfidenceLow),
		finding("b", "x", types.CategoryState, "1.50", types.ConfidenceLow),
	}
	reversed := []types.Finding{in[2], in[1], in[0]}
	assert.Equal(t, scenarios(Batch(in)), scenarios(Batch(reversed)))
}

func TestSummarize(t *testing.T) {
	wasted := decimal.RequireFromString("33.60")
	primary := finding("d1", "disk_unattached", types.CategoryState, "22.40", types.ConfidenceHigh)
	primary.AlreadyWasted = &wasted
	batch := Batch([]types.Finding{
		primary,
		finding("d1", "disk_oversized", types.CategoryUtilization, "22.40", types.ConfidenceMedium),
		finding("d2", "unnecessary_zrs", types.CategoryHygiene, "26.88", types.ConfidenceHigh),
	})

	s := Summarize(batch)
	assert.Equal(t, 3, s.TotalFindings)
	assert.Equal(t, 2, s.ResourcesAffected)
	assert.Equal(t, "49.28", s.TotalMonthlyWaste.StringFixed(2))
	assert.Equal(t, "33.60", s.AlreadyWasted.StringFixed(2))
	assert.Equal(t, 2, s.ByConfidence[types.ConfidenceHigh])
	assert.Equal(t, 2, s.ByResourceType[types.ResourceDisk])
}

func TestFilters(t *testing.T) {
	batch := Batch([]types.Finding{
		finding("d1", "disk_unattached", types.CategoryState, "22.40", types.ConfidenceHigh),
		finding("d1", "disk_oversized", types.CategoryUtilization, "1.00", types.ConfidenceLow),
		finding("d2", "snapshot_old", types.CategoryHygiene, "0.50", types.ConfidenceCritical),
	})

	kept := FilterMinCost(batch, decimal.NewFromInt(5))
	assert.Equal(t, []string{"d1:disk_unattached", "d1:disk_oversized"}, scenarios(kept))
	assert.Len(t, FilterMinCost(batch, decimal.Zero), 3)

	kept = FilterMinConfidence(batch, types.ConfidenceCritical)
	assert.Equal(t, []string{"d2:snapshot_old"}, scenarios(kept))
	assert.Len(t, FilterMinConfidence(batch, ""), 3)
}
