package rules

import (
	"strconv"

	"cloud-waste/core/confidence"
	"cloud-waste/core/types"
)

const (
	paramMaxSnapshotsPerDisk = "max_snapshots_per_disk"
	paramMaxAgeDays          = "max_age_days"
)

func snapshotRules() []*Rule {
	return []*Rule{
		{
			ScenarioID:         "snapshot_redundant",
			Description:        "More snapshots of one source than the retention keeps",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceSnapshot},
			RequiredAttributes: []string{types.AttrSourceResourceID, types.AttrSizeGB},
			GroupBy:            GroupByAttribute(types.AttrSourceResourceID),
			Params: []ParamSpec{
				IntParam(paramMaxSnapshotsPerDisk, 3, 1, 1000, "newest snapshots kept per source"),
			},
			Confidence: ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				if in.Group == nil {
					return false, nil
				}
				return in.Group.Rank(in.Resource.ID) >= in.Params.Int(paramMaxSnapshotsPerDisk), nil
			},
			Cost: func(in *Input) (Cost, error) {
				c, err := wasteCost(in)
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["group_size"] = strconv.Itoa(in.Group.Size())
				c.Metadata["rank"] = strconv.Itoa(in.Group.Rank(in.Resource.ID) + 1)
				return c, nil
			},
			Signal: daysSignal,
			Recommendation: "Snapshot {{.Resource.Name}} is number {{.Meta \"rank\"}} of {{.Meta \"group_size\"}} for the same source, " +
				"beyond the {{.Param \"max_snapshots_per_disk\"}} newest kept. Delete it.",
		},
		{
			ScenarioID:         "snapshot_orphaned",
			Description:        "Snapshot whose source disk no longer exists",
			Category:           types.CategoryState,
			AppliesTo:          []types.ResourceType{types.ResourceSnapshot},
			RequiredAttributes: []string{types.AttrSourceExists, types.AttrSizeGB},
			Params:             []ParamSpec{minAgeParam(7)},
			Confidence:         ageBreakpoints(),
			Predicate: func(in *Input) (bool, error) {
				return !in.Resource.Attributes.GetBool(types.AttrSourceExists) &&
					in.Days() >= in.Params.Int(ParamMinAgeDays), nil
			},
			Cost:   wasteCost,
			Signal: daysSignal,
			Recommendation: "Snapshot {{.Resource.Name}} outlived its source disk by at least {{.Days}} days. " +
				"Delete it unless it is a deliberate backup.",
		},
		{
			ScenarioID:         "snapshot_old",
			Description:        "Snapshot older than the retention window",
			Category:           types.CategoryHygiene,
			AppliesTo:          []types.ResourceType{types.ResourceSnapshot},
			RequiredAttributes: []string{types.AttrSizeGB},
			Params: []ParamSpec{
				IntParam(paramMaxAgeDays, 90, 1, 3650, "age in days after which a snapshot is stale"),
			},
			Confidence: confidence.AscendingBreakpoints(90, 180, 365),
			Predicate: func(in *Input) (bool, error) {
				return in.Days() >= in.Params.Int(paramMaxAgeDays), nil
			},
			Cost:   fullCost,
			Signal: daysSignal,
			Recommendation: "Snapshot {{.Resource.Name}} is {{.Days}} days old. " +
				"Review retention and delete it if it is no longer needed.",
		},
	}
}
