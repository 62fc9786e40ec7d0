package rules

import (
	"strconv"
	"strings"

	"cloud-waste/core/confidence"
	"cloud-waste/core/metrics"
	"cloud-waste/core/types"
)

const (
	paramMaxNATPerVNet = "max_nat_gateways_per_vnet"
	paramMinTrafficGB  = "min_traffic_gb"

	bytesPerGB = 1 << 30
)

func natGatewayRules() []*Rule {
	return []*Rule{
		{
			ScenarioID:         "no_subnet",
			Description:        "NAT gateway with no associated subnet",
			Category:           types.CategoryState,
			AppliesTo:          []types.ResourceType{types.ResourceNATGateway},
			RequiredAttributes: []string{types.AttrSubnets},
			Params:             []ParamSpec{minAgeParam(7)},
			Confidence:         confidence.AscendingBreakpoints(7, 14, 30),
			Predicate: func(in *Input) (bool, error) {
				return len(in.Resource.Attributes.GetList(types.AttrSubnets)) == 0 &&
					in.Days() >= in.Params.Int(ParamMinAgeDays), nil
			},
			Cost:   wasteCost,
			Signal: daysSignal,
			Recommendation: "NAT gateway {{.Resource.Name}} has no subnets and has routed nothing for {{.Days}} days. " +
				"Delete it to save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
		{
			ScenarioID:         "multiple_nat_per_vnet",
			Description:        "More NAT gateways in one virtual network than needed",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceNATGateway},
			RequiredAttributes: []string{types.AttrVirtualNetworkID},
			GroupBy:            GroupByAttribute(types.AttrVirtualNetworkID),
			Params: []ParamSpec{
				IntParam(paramMaxNATPerVNet, 1, 1, 100, "NAT gateways kept per virtual network"),
			},
			Confidence: ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				if in.Group == nil {
					return false, nil
				}
				return in.Group.Rank(in.Resource.ID) >= in.Params.Int(paramMaxNATPerVNet), nil
			},
			Cost: func(in *Input) (Cost, error) {
				c, err := fullCost(in)
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["gateways_in_vnet"] = strconv.Itoa(in.Group.Size())
				return c, nil
			},
			Signal: daysSignal,
			Recommendation: "Virtual network has {{.Meta \"gateways_in_vnet\"}} NAT gateways. " +
				"Consolidate subnets onto one and delete {{.Resource.Name}}.",
		},
		{
			ScenarioID:         "nat_low_traffic",
			Description:        "NAT gateway processing almost no traffic",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceNATGateway},
			RequiredAttributes: []string{types.AttrSubnets},
			RequiredMetrics: []MetricRequirement{
				{Metric: metrics.NATBytesTotal, Aggregation: metrics.Total, LookbackParam: ParamLookbackDays},
			},
			Params: []ParamSpec{
				lookbackParam(30),
				NumberParam(paramMinTrafficGB, 1, 0, 1e6, "traffic in GB over the window below which the gateway is idle"),
			},
			Confidence: confidence.DescendingBreakpoints(1, 0.1, 0.01),
			Predicate: func(in *Input) (bool, error) {
				return natTrafficGB(in) < in.Params.Float(paramMinTrafficGB), nil
			},
			Cost: func(in *Input) (Cost, error) {
				c, err := fullCost(in)
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["traffic_gb"] = strconv.FormatFloat(natTrafficGB(in), 'f', 3, 64)
				return c, nil
			},
			Signal: natTrafficGB,
			Recommendation: "NAT gateway {{.Resource.Name}} processed {{.Meta \"traffic_gb\"}} GB in {{.Param \"lookback_days\"}} days. " +
				"Route egress through a shared gateway or remove it.",
		},
	}
}

func natTrafficGB(in *Input) float64 {
	return in.Metric(metrics.NATBytesTotal, metrics.Total).Value / bytesPerGB
}

func publicIPRules() []*Rule {
	return []*Rule{
		{
			ScenarioID:         "public_ip_unassociated",
			Description:        "Public IP address not associated with any resource",
			Category:           types.CategoryState,
			AppliesTo:          []types.ResourceType{types.ResourcePublicIP},
			RequiredAttributes: []string{types.AttrAssociated, types.AttrSKU},
			Params:             []ParamSpec{minAgeParam(7)},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				return !in.Resource.Attributes.GetBool(types.AttrAssociated) &&
					in.Days() >= in.Params.Int(ParamMinAgeDays), nil
			},
			Cost: func(in *Input) (Cost, error) {
				c, err := wasteCost(in)
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["sku"] = strings.TrimSpace(in.Resource.Attributes.GetString(types.AttrSKU))
				return c, nil
			},
			Signal: daysSignal,
			Recommendation: "Public IP {{.Resource.Name}} ({{.Meta \"sku\"}}) has been unassociated for {{.Days}} days. " +
				"Release it to save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
	}
}
