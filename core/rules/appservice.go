package rules

import (
	"math"
	"strconv"

	"cloud-waste/core/confidence"
	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/types"
)

const (
	paramMaxPlansPerApp       = "max_plans_per_application"
	paramMaxInstanceStdDev    = "max_instance_stddev"
	paramTargetUtilizationPct = "target_utilization_percent"

	applicationTag = "application"
)

func appServicePlanRules() []*Rule {
	return []*Rule{
		{
			ScenarioID:         "app_service_plan_empty",
			Description:        "App Service plan hosting no apps",
			Category:           types.CategoryState,
			AppliesTo:          []types.ResourceType{types.ResourceAppServicePlan},
			RequiredAttributes: []string{types.AttrSiteCount, types.AttrTier, types.AttrInstanceCount},
			Params:             []ParamSpec{minAgeParam(7)},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				return in.Resource.Attributes.GetInt(types.AttrSiteCount) == 0 &&
					in.Days() >= in.Params.Int(ParamMinAgeDays), nil
			},
			Cost:   wasteCost,
			Signal: daysSignal,
			Recommendation: "App Service plan {{.Resource.Name}} hosts no apps. " +
				"Delete it to save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
		{
			ScenarioID:         "app_service_plan_duplicate",
			Description:        "Several App Service plans serving one application",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceAppServicePlan},
			RequiredAttributes: []string{types.AttrTier, types.AttrInstanceCount},
			GroupBy:            GroupByTag(applicationTag),
			Params: []ParamSpec{
				IntParam(paramMaxPlansPerApp, 1, 1, 100, "plans kept per application tag"),
			},
			Confidence: ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				if in.Group == nil {
					return false, nil
				}
				return in.Group.Rank(in.Resource.ID) >= in.Params.Int(paramMaxPlansPerApp), nil
			},
			Cost: func(in *Input) (Cost, error) {
				c, err := fullCost(in)
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["application"] = in.Group.Key
				c.Metadata["plans_for_application"] = strconv.Itoa(in.Group.Size())
				return c, nil
			},
			Signal: daysSignal,
			Recommendation: "Application {{.Meta \"application\"}} runs on {{.Meta \"plans_for_application\"}} plans. " +
				"Move its apps onto one plan and delete {{.Resource.Name}}.",
		},
		{
			ScenarioID:         "app_service_plan_overprovisioned",
			Description:        "App Service plan with a flat instance count and low CPU",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceAppServicePlan},
			RequiredAttributes: []string{types.AttrInstanceCount, types.AttrTier},
			RequiredMetrics: []MetricRequirement{
				{Metric: metrics.InstanceCount, Aggregation: metrics.StdDev, LookbackParam: ParamLookbackDays},
				{Metric: metrics.CPUPercentage, Aggregation: metrics.Average, LookbackParam: ParamLookbackDays},
			},
			Params: []ParamSpec{
				lookbackParam(14),
				NumberParam(paramMaxInstanceStdDev, 0.5, 0, 100, "instance count deviation below which scaling is static"),
				NumberParam(ParamMaxUtilPct, 30, 0, 100, "average CPU below which the plan is overprovisioned"),
				NumberParam(paramTargetUtilizationPct, 60, 1, 100, "CPU utilization to size the plan for"),
			},
			Confidence: confidence.DescendingBreakpoints(30, 15, 5),
			Precondition: func(in *Input) bool {
				return in.Resource.Attributes.GetInt(types.AttrInstanceCount) > 1
			},
			Predicate: func(in *Input) (bool, error) {
				n := in.Resource.Attributes.GetInt(types.AttrInstanceCount)
				if n <= 1 {
					return false, nil
				}
				if in.Metric(metrics.InstanceCount, metrics.StdDev).Value > in.Params.Float(paramMaxInstanceStdDev) {
					return false, nil
				}
				if avgCPU(in) >= in.Params.Float(ParamMaxUtilPct) {
					return false, nil
				}
				return targetInstances(in) < n, nil
			},
			Cost: func(in *Input) (Cost, error) {
				target := targetInstances(in)
				c, err := savingsCost(in, pricing.WithInstances(target))
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["current_instances"] = strconv.Itoa(in.Resource.Attributes.GetInt(types.AttrInstanceCount))
				c.Metadata["recommended_instances"] = strconv.Itoa(target)
				c.Metadata["avg_cpu_percent"] = formatFloat(avgCPU(in))
				return c, nil
			},
			Signal: avgCPU,
			Recommendation: "App Service plan {{.Resource.Name}} runs {{.Meta \"current_instances\"}} instances at " +
				"{{.Meta \"avg_cpu_percent\"}}% CPU. Scale in to {{.Meta \"recommended_instances\"}} or enable autoscale.",
		},
		{
			ScenarioID:         "app_service_plan_premium_dev",
			Description:        "Premium App Service plan in a non-production environment",
			Category:           types.CategoryHygiene,
			AppliesTo:          []types.ResourceType{types.ResourceAppServicePlan},
			RequiredAttributes: []string{types.AttrTier, types.AttrInstanceCount},
			Params:             []ParamSpec{devKeywordsParam()},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				if _, ok := in.Pricing.StandardEquivalent(in.Resource.Attributes.GetString(types.AttrTier)); !ok {
					return false, nil
				}
				return IsDevEnvironment(in.Resource, in.Params.Strings(ParamDevKeywords)), nil
			},
			Cost: func(in *Input) (Cost, error) {
				tier := in.Resource.Attributes.GetString(types.AttrTier)
				std, _ := in.Pricing.StandardEquivalent(tier)
				c, err := savingsCost(in, pricing.WithTier(std))
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["current_tier"] = tier
				c.Metadata["recommended_tier"] = std
				return c, nil
			},
			Signal: func(in *Input) float64 {
				return float64(in.Resource.AgeDays(in.Now))
			},
			Recommendation: "App Service plan {{.Resource.Name}} uses premium tier {{.Meta \"current_tier\"}} in a non-production environment. " +
				"Switch to {{.Meta \"recommended_tier\"}}.",
		},
	}
}

// targetInstances sizes the plan so the observed load lands at the target
// utilization, never below one instance.
func targetInstances(in *Input) int {
	n := float64(in.Resource.Attributes.GetInt(types.AttrInstanceCount))
	target := math.Ceil(n * avgCPU(in) / in.Params.Float(paramTargetUtilizationPct))
	if target < 1 {
		return 1
	}
	return int(target)
}
