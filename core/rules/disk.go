package rules

import (
	"strings"

	"cloud-waste/core/confidence"
	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/types"
)

const (
	paramBurstThresholdPct = "burst_threshold_percent"
)

func diskRules() []*Rule {
	return []*Rule{
		{
			ScenarioID:         "disk_unattached",
			Description:        "Managed disk not attached to any VM",
			Category:           types.CategoryState,
			AppliesTo:          []types.ResourceType{types.ResourceDisk},
			RequiredAttributes: []string{types.AttrState, types.AttrSizeGB, types.AttrSKU},
			Params:             []ParamSpec{minAgeParam(7)},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				state := in.Resource.Attributes.GetString(types.AttrState)
				return strings.EqualFold(state, "Unattached") && in.Days() >= in.Params.Int(ParamMinAgeDays), nil
			},
			Cost:   wasteCost,
			Signal: daysSignal,
			Recommendation: "Disk {{.Resource.Name}} has been unattached for {{.Days}} days. " +
				"Snapshot it if the data is still needed, then delete it to save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
		{
			ScenarioID:         "disk_on_deallocated_vm",
			Description:        "Disk attached to a VM that stays deallocated",
			Category:           types.CategoryState,
			AppliesTo:          []types.ResourceType{types.ResourceDisk},
			RequiredAttributes: []string{types.AttrState, types.AttrVMPowerState, types.AttrSizeGB, types.AttrSKU},
			Params:             []ParamSpec{minAgeParam(7)},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				a := in.Resource.Attributes
				if strings.EqualFold(a.GetString(types.AttrState), "Unattached") {
					return false, nil
				}
				return strings.EqualFold(a.GetString(types.AttrVMPowerState), "deallocated") &&
					in.Days() >= in.Params.Int(ParamMinAgeDays), nil
			},
			Cost:   wasteCost,
			Signal: daysSignal,
			Recommendation: "Disk {{.Resource.Name}} belongs to a VM deallocated for {{.Days}} days and is still billed. " +
				"Delete the VM and its disks, or snapshot the disk and delete it.",
		},
		{
			ScenarioID:         "disk_oversized",
			Description:        "Disk tier provisions far more performance than is used",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceDisk},
			RequiredAttributes: []string{types.AttrSizeGB, types.AttrSKU},
			RequiredMetrics: []MetricRequirement{
				{Metric: metrics.DiskIOPSConsumedPercentage, Aggregation: metrics.Average, LookbackParam: ParamLookbackDays},
			},
			Params: []ParamSpec{
				lookbackParam(30),
				NumberParam(ParamMaxUtilPct, 10, 0, 100, "average IOPS consumption below which the tier is oversized"),
			},
			Confidence:   confidence.DescendingBreakpoints(10, 5, 1),
			Precondition: hasLowerDiskTier,
			Predicate: func(in *Input) (bool, error) {
				if !hasLowerDiskTier(in) {
					return false, nil
				}
				util := in.Metric(metrics.DiskIOPSConsumedPercentage, metrics.Average).Value
				return util < in.Params.Float(ParamMaxUtilPct), nil
			},
			Cost: func(in *Input) (Cost, error) {
				tier, _ := pricing.SplitSKU(in.Resource.Attributes.GetString(types.AttrSKU))
				lower, _ := in.Pricing.LowerDiskTier(tier)
				c, err := savingsCost(in, pricing.WithTier(lower))
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["current_tier"] = tier
				c.Metadata["recommended_tier"] = lower
				c.Metadata["avg_iops_percent"] = formatFloat(in.Metric(metrics.DiskIOPSConsumedPercentage, metrics.Average).Value)
				return c, nil
			},
			Signal: func(in *Input) float64 {
				return in.Metric(metrics.DiskIOPSConsumedPercentage, metrics.Average).Value
			},
			Recommendation: "Disk {{.Resource.Name}} averaged {{.Meta \"avg_iops_percent\"}}% of its provisioned IOPS. " +
				"Move it from {{.Meta \"current_tier\"}} to {{.Meta \"recommended_tier\"}}.",
		},
		{
			ScenarioID:         "unnecessary_zrs",
			Description:        "Zone-redundant disk in a non-production environment",
			Category:           types.CategoryHygiene,
			AppliesTo:          []types.ResourceType{types.ResourceDisk},
			RequiredAttributes: []string{types.AttrSKU, types.AttrSizeGB},
			Params:             []ParamSpec{minAgeParam(7), devKeywordsParam()},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				_, repl := pricing.SplitSKU(in.Resource.Attributes.GetString(types.AttrSKU))
				return repl == "ZRS" &&
					IsDevEnvironment(in.Resource, in.Params.Strings(ParamDevKeywords)) &&
					in.Days() >= in.Params.Int(ParamMinAgeDays), nil
			},
			Cost: func(in *Input) (Cost, error) {
				return savingsCost(in, pricing.WithReplication("LRS"))
			},
			Signal: daysSignal,
			Recommendation: "Disk {{.Resource.Name}} uses zone-redundant storage in a non-production environment. " +
				"Switch to locally redundant storage to save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
		{
			ScenarioID:         "unnecessary_cmk",
			Description:        "Customer-managed key encryption in a non-production environment",
			Category:           types.CategoryHygiene,
			AppliesTo:          []types.ResourceType{types.ResourceDisk},
			RequiredAttributes: []string{types.AttrEncryption, types.AttrSKU, types.AttrSizeGB},
			Params:             []ParamSpec{devKeywordsParam()},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				return pricing.IsCustomerManagedKey(in.Resource.Attributes.GetString(types.AttrEncryption)) &&
					IsDevEnvironment(in.Resource, in.Params.Strings(ParamDevKeywords)), nil
			},
			Cost: func(in *Input) (Cost, error) {
				return savingsCost(in, pricing.WithoutCustomerManagedKey())
			},
			Signal: func(in *Input) float64 {
				return float64(in.Resource.AgeDays(in.Now))
			},
			Recommendation: "Disk {{.Resource.Name}} is encrypted with a customer-managed key in a non-production environment. " +
				"Platform-managed keys would save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
		{
			ScenarioID:         "bursting_unused",
			Description:        "On-demand bursting enabled but never needed",
			Category:           types.CategoryHygiene,
			AppliesTo:          []types.ResourceType{types.ResourceDisk},
			RequiredAttributes: []string{types.AttrBurstingEnabled, types.AttrSKU, types.AttrSizeGB},
			RequiredMetrics: []MetricRequirement{
				{Metric: metrics.DiskIOPSConsumedPercentage, Aggregation: metrics.Maximum, LookbackParam: ParamLookbackDays},
			},
			Params: []ParamSpec{
				lookbackParam(30),
				NumberParam(paramBurstThresholdPct, 100, 0, 1000, "peak IOPS consumption that would need bursting"),
			},
			Confidence: confidence.DescendingBreakpoints(80, 50, 20),
			Precondition: func(in *Input) bool {
				return in.Resource.Attributes.GetBool(types.AttrBurstingEnabled)
			},
			Predicate: func(in *Input) (bool, error) {
				if !in.Resource.Attributes.GetBool(types.AttrBurstingEnabled) {
					return false, nil
				}
				peak := in.Metric(metrics.DiskIOPSConsumedPercentage, metrics.Maximum).Value
				return peak < in.Params.Float(paramBurstThresholdPct), nil
			},
			Cost: func(in *Input) (Cost, error) {
				c, err := savingsCost(in, pricing.WithoutBursting())
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["peak_iops_percent"] = formatFloat(in.Metric(metrics.DiskIOPSConsumedPercentage, metrics.Maximum).Value)
				return c, nil
			},
			Signal: func(in *Input) float64 {
				return in.Metric(metrics.DiskIOPSConsumedPercentage, metrics.Maximum).Value
			},
			Recommendation: "Disk {{.Resource.Name}} peaked at {{.Meta \"peak_iops_percent\"}}% of its baseline IOPS. " +
				"Disable on-demand bursting.",
		},
	}
}

// hasLowerDiskTier reports whether a cheaper disk tier is priced
func hasLowerDiskTier(in *Input) bool {
	tier, _ := pricing.SplitSKU(in.Resource.Attributes.GetString(types.AttrSKU))
	_, ok := in.Pricing.LowerDiskTier(tier)
	return ok
}
