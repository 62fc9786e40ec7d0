package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloud-waste/core/confidence"
	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/types"
	"cloud-waste/internal/errors"
)

var now = time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC)

func resource(t *testing.T, id string, rt types.ResourceType, ageDays int, tags map[string]string, attrs ...types.Attribute) *types.Resource {
	t.Helper()
	r, err := types.NewResource(types.ResourceSpec{
		ID:         id,
		Type:       rt,
		Name:       id,
		CreatedAt:  now.Add(-time.Duration(ageDays) * 24 * time.Hour),
		Tags:       tags,
		Attributes: attrs,
	})
	require.NoError(t, err)
	return r
}

func input(r *types.Resource, rule *Rule) *Input {
	return &Input{
		Resource: r,
		Now:      now,
		Params:   DefaultValues(rule.Params),
		Pricing:  pricing.NewModel(nil),
		Metrics:  map[string]metrics.Result{},
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, CatalogVersion, c.Version())
	assert.Equal(t, 21, c.Len())
	assert.Same(t, c, DefaultCatalog())

	seen := map[string]bool{}
	for _, r := range c.Rules() {
		assert.False(t, seen[r.ScenarioID], "duplicate %s", r.ScenarioID)
		seen[r.ScenarioID] = true
	}

	for _, rt := range types.AllResourceTypes() {
		assert.NotEmpty(t, c.ForType(rt), "no rules for %s", rt)
	}

	r, ok := c.Lookup("disk_oversized")
	require.True(t, ok)
	assert.Equal(t, PhaseMetrics, r.Phase())
	r, ok = c.Lookup("disk_unattached")
	require.True(t, ok)
	assert.Equal(t, PhaseAttributes, r.Phase())
}

func TestCatalogOrderIsStable(t *testing.T) {
	a := DefaultCatalog().Rules()
	b, err := NewCatalog(CatalogVersion, DefaultRules()...)
	require.NoError(t, err)
	for i, r := range b.Rules() {
		assert.Equal(t, a[i].ScenarioID, r.ScenarioID)
	}
	assert.Equal(t, "disk_unattached", a[0].ScenarioID)
}

func TestNewCatalogRejectsInvalidRules(t *testing.T) {
	valid := func() *Rule {
		return &Rule{
			ScenarioID: "x",
			Category:   types.CategoryState,
			AppliesTo:  []types.ResourceType{types.ResourceDisk},
			Confidence: confidence.AscendingBreakpoints(1, 2, 3),
			Predicate:  func(*Input) (bool, error) { return true, nil },
			Cost:       fullCost,
			Signal:     daysSignal,
		}
	}

	_, err := NewCatalog("v1", valid(), valid())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scenario id")

	tests := []struct {
		name   string
		mutate func(r *Rule)
	}{
		{"no types", func(r *Rule) { r.AppliesTo = nil }},
		{"unknown type", func(r *Rule) { r.AppliesTo = []types.ResourceType{"bucket"} }},
		{"no predicate", func(r *Rule) { r.Predicate = nil }},
		{"bad breakpoints", func(r *Rule) { r.Confidence = confidence.AscendingBreakpoints(3, 2, 1) }},
		{"default out of range", func(r *Rule) { r.Params = []ParamSpec{IntParam("n", 50, 0, 10, "")} }},
		{"lookback missing", func(r *Rule) {
			r.RequiredMetrics = []MetricRequirement{{Metric: "m", Aggregation: metrics.Average, LookbackParam: "days"}}
		}},
		{"bad template", func(r *Rule) { r.Recommendation = "{{.Nope" }},
		{"unknown category", func(r *Rule) { r.Category = "misc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			_, err := NewCatalog("v1", r)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeRule))
		})
	}

	_, err = NewCatalog("", valid())
	assert.Error(t, err)
}

func TestCatalogCopiesRules(t *testing.T) {
	src := DefaultRules()[0]
	c, err := NewCatalog("v1", src)
	require.NoError(t, err)
	src.AppliesTo[0] = types.ResourceSnapshot
	r, _ := c.Lookup(src.ScenarioID)
	assert.True(t, r.Applies(types.ResourceDisk))
}

func TestGroupRanking(t *testing.T) {
	var members []*types.Resource
	for i, age := range []int{5, 1, 3, 3, 10} {
		members = append(members, resource(t, string(rune('a'+i)), types.ResourceSnapshot, age, nil,
			types.Attribute{Key: types.AttrSizeGB, Value: types.NumberValue(10)}))
	}
	g := NewGroup("disk-1", members)

	var order []string
	for _, m := range g.Members {
		order = append(order, m.ID)
	}
	// newest first, equal timestamps by ID
	assert.Equal(t, []string{"b", "c", "d", "a", "e"}, order)
	assert.Equal(t, 0, g.Rank("b"))
	assert.Equal(t, 4, g.Rank("e"))
	assert.Equal(t, -1, g.Rank("zzz"))
}

func TestIsDevEnvironment(t *testing.T) {
	kw := defaultDevKeywords
	mk := func(tags map[string]string, rg string) *types.Resource {
		r, err := types.NewResource(types.ResourceSpec{
			ID: "ip", Type: types.ResourcePublicIP, CreatedAt: now, Tags: tags, ResourceGroup: rg,
			Attributes: []types.Attribute{
				{Key: types.AttrSKU, Value: types.StringValue("Basic")},
				{Key: types.AttrAssociated, Value: types.BoolValue(true)},
			},
		})
		require.NoError(t, err)
		return r
	}

	assert.True(t, IsDevEnvironment(mk(map[string]string{"Environment": "Dev"}, ""), kw))
	assert.True(t, IsDevEnvironment(mk(map[string]string{"env": "qa"}, ""), kw))
	assert.True(t, IsDevEnvironment(mk(nil, "rg-staging-app"), kw))
	assert.False(t, IsDevEnvironment(mk(map[string]string{"environment": "production"}, "rg-prod"), kw))
	assert.False(t, IsDevEnvironment(mk(nil, "rg-devops-tools"), kw))
}

func TestParamCoerce(t *testing.T) {
	p := IntParam("days", 7, 0, 100, "")
	v, err := p.Coerce(14)
	require.NoError(t, err)
	assert.Equal(t, 14, v)
	v, err = p.Coerce(14.0)
	require.NoError(t, err)
	assert.Equal(t, 14, v)
	_, err = p.Coerce(14.5)
	assert.Error(t, err)
	_, err = p.Coerce(500)
	assert.Error(t, err)
	_, err = p.Coerce("14")
	assert.Error(t, err)

	s := StringsParam("kw", nil, "")
	v, err = s.Coerce([]any{"dev", "qa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "qa"}, v)
	_, err = s.Coerce([]any{"dev", 1})
	assert.Error(t, err)

	b := BoolParam("on", false, "")
	_, err = b.Coerce("yes")
	assert.Error(t, err)
}

func TestValuesAreCopies(t *testing.T) {
	base := DefaultValues([]ParamSpec{IntParam("n", 3, 0, 10, "")})
	changed := base.With("n", 5)
	assert.Equal(t, 3, base.Int("n"))
	assert.Equal(t, 5, changed.Int("n"))
}

func TestDiskUnattachedRule(t *testing.T) {
	rule, _ := DefaultCatalog().Lookup("disk_unattached")
	disk := resource(t, "d1", types.ResourceDisk, 45, nil,
		types.Attribute{Key: types.AttrState, Value: types.StringValue("Unattached")},
		types.Attribute{Key: types.AttrSizeGB, Value: types.NumberValue(128)},
		types.Attribute{Key: types.AttrSKU, Value: types.StringValue("Premium_LRS")},
	)
	in := input(disk, rule)

	ok, err := rule.Predicate(in)
	require.NoError(t, err)
	assert.True(t, ok)

	cost, err := rule.Cost(in)
	require.NoError(t, err)
	assert.Equal(t, "22.40", cost.Monthly.StringFixed(2))
	assert.Equal(t, "33.60", cost.AlreadyWasted.StringFixed(2))
	assert.Equal(t, types.ConfidenceHigh, confidence.Grade(rule.Signal(in), rule.Confidence))

	text, err := rule.Render(RecommendationData{Resource: disk, Params: in.Params, Cost: cost, Days: in.Days(), Currency: "USD"})
	require.NoError(t, err)
	assert.Contains(t, text, "unattached for 45 days")
	assert.Contains(t, text, "22.40 USD/month")

	young := resource(t, "d2", types.ResourceDisk, 2, nil,
		types.Attribute{Key: types.AttrState, Value: types.StringValue("Unattached")},
		types.Attribute{Key: types.AttrSizeGB, Value: types.NumberValue(128)},
		types.Attribute{Key: types.AttrSKU, Value: types.StringValue("Premium_LRS")},
	)
	ok, err = rule.Predicate(input(young, rule))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppServicePlanTargetInstances(t *testing.T) {
	rule, _ := DefaultCatalog().Lookup("app_service_plan_overprovisioned")
	plan := resource(t, "plan", types.ResourceAppServicePlan, 60, nil,
		types.Attribute{Key: types.AttrTier, Value: types.StringValue("S1")},
		types.Attribute{Key: types.AttrInstanceCount, Value: types.NumberValue(4)},
		types.Attribute{Key: types.AttrSiteCount, Value: types.NumberValue(3)},
	)
	in := input(plan, rule)
	in.Metrics[MetricRequirement{Metric: metrics.InstanceCount, Aggregation: metrics.StdDev}.Key()] = metrics.Result{Value: 0, SampleCount: 10}
	in.Metrics[MetricRequirement{Metric: metrics.CPUPercentage, Aggregation: metrics.Average}.Key()] = metrics.Result{Value: 12, SampleCount: 10}

	ok, err := rule.Predicate(in)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, targetInstances(in))

	cost, err := rule.Cost(in)
	require.NoError(t, err)
	assert.Equal(t, "288.00", cost.Monthly.StringFixed(2))
	assert.Equal(t, "216.00", cost.Savings.StringFixed(2))
	assert.True(t, cost.ClaimsSavings)
}

func TestStorageGeoDowngrade(t *testing.T) {
	rule, _ := DefaultCatalog().Lookup("unnecessary_grs")
	acct := resource(t, "sa", types.ResourceStorageAccount, 100, map[string]string{"env": "dev"},
		types.Attribute{Key: types.AttrReplication, Value: types.StringValue("Standard_GZRS")},
		types.Attribute{Key: types.AttrUsedCapacityGB, Value: types.NumberValue(1000)},
	)
	in := input(acct, rule)
	ok, err := rule.Predicate(in)
	require.NoError(t, err)
	assert.True(t, ok)

	cost, err := rule.Cost(in)
	require.NoError(t, err)
	assert.Equal(t, "ZRS", cost.Metadata["recommended_replication"])
	assert.True(t, cost.Savings.IsPositive())
}
