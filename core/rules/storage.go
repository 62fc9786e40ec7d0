package rules

import (
	"cloud-waste/core/pricing"
	"cloud-waste/core/types"
)

// geoDowngrade maps geo-replicated classes to their local equivalent
var geoDowngrade = map[string]string{
	"GRS":    "LRS",
	"RAGRS":  "LRS",
	"GZRS":   "ZRS",
	"RAGZRS": "ZRS",
}

func storageAccountRules() []*Rule {
	return []*Rule{
		{
			ScenarioID:         "unnecessary_grs",
			Description:        "Geo-redundant storage account in a non-production environment",
			Category:           types.CategoryHygiene,
			AppliesTo:          []types.ResourceType{types.ResourceStorageAccount},
			RequiredAttributes: []string{types.AttrReplication, types.AttrUsedCapacityGB},
			Params:             []ParamSpec{devKeywordsParam()},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				_, repl := pricing.SplitSKU(in.Resource.Attributes.GetString(types.AttrReplication))
				if _, geo := geoDowngrade[repl]; !geo {
					return false, nil
				}
				return IsDevEnvironment(in.Resource, in.Params.Strings(ParamDevKeywords)), nil
			},
			Cost: func(in *Input) (Cost, error) {
				_, repl := pricing.SplitSKU(in.Resource.Attributes.GetString(types.AttrReplication))
				target := geoDowngrade[repl]
				c, err := savingsCost(in, pricing.WithReplication(target))
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["current_replication"] = repl
				c.Metadata["recommended_replication"] = target
				return c, nil
			},
			Signal: func(in *Input) float64 {
				return float64(in.Resource.AgeDays(in.Now))
			},
			Recommendation: "Storage account {{.Resource.Name}} replicates {{.Meta \"current_replication\"}} in a non-production environment. " +
				"Switch to {{.Meta \"recommended_replication\"}} to save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
	}
}
