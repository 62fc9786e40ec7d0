package rules

import (
	"strings"

	"cloud-waste/core/confidence"
	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/types"
)

const (
	paramMinStoppedDays = "min_stopped_days"
	paramMaxCPUPct      = "max_cpu_percent"
)

// NormalizePowerState reduces provider spellings such as "PowerState/stopped"
// or "VM deallocated" to running, stopped, deallocated or the lowered input.
func NormalizePowerState(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "powerstate/")
	s = strings.TrimPrefix(s, "vm ")
	return s
}

func isRunning(r *types.Resource) bool {
	return NormalizePowerState(r.Attributes.GetString(types.AttrPowerState)) == "running"
}

func virtualMachineRules() []*Rule {
	return []*Rule{
		{
			ScenarioID:         "vm_stopped_not_deallocated",
			Description:        "VM stopped from the guest OS but still allocated and billed",
			Category:           types.CategoryState,
			AppliesTo:          []types.ResourceType{types.ResourceVirtualMachine},
			RequiredAttributes: []string{types.AttrPowerState, types.AttrVMSize},
			Params: []ParamSpec{
				IntParam(paramMinStoppedDays, 3, 0, 3650, "days stopped before a finding is raised"),
			},
			Confidence: confidence.AscendingBreakpoints(3, 7, 30),
			Predicate: func(in *Input) (bool, error) {
				return NormalizePowerState(in.Resource.Attributes.GetString(types.AttrPowerState)) == "stopped" &&
					in.Days() >= in.Params.Int(paramMinStoppedDays), nil
			},
			Cost:   wasteCost,
			Signal: daysSignal,
			Recommendation: "VM {{.Resource.Name}} has been stopped but not deallocated for {{.Days}} days and compute is still billed. " +
				"Deallocate it to save {{.Cost.Savings.StringFixed 2}} {{.Currency}}/month.",
		},
		{
			ScenarioID:         "vm_idle",
			Description:        "Running VM with negligible CPU usage",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceVirtualMachine},
			RequiredAttributes: []string{types.AttrPowerState, types.AttrVMSize},
			RequiredMetrics: []MetricRequirement{
				{Metric: metrics.CPUPercentage, Aggregation: metrics.Average, LookbackParam: ParamLookbackDays},
			},
			Params: []ParamSpec{
				lookbackParam(14),
				NumberParam(ParamMaxUtilPct, 5, 0, 100, "average CPU below which the VM is idle"),
			},
			Confidence:   confidence.DescendingBreakpoints(5, 2, 1),
			Precondition: func(in *Input) bool { return isRunning(in.Resource) },
			Predicate: func(in *Input) (bool, error) {
				if !isRunning(in.Resource) {
					return false, nil
				}
				return avgCPU(in) < in.Params.Float(ParamMaxUtilPct), nil
			},
			Cost: func(in *Input) (Cost, error) {
				c, err := fullCost(in)
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["avg_cpu_percent"] = formatFloat(avgCPU(in))
				return c, nil
			},
			Signal: avgCPU,
			Recommendation: "VM {{.Resource.Name}} averaged {{.Meta \"avg_cpu_percent\"}}% CPU over {{.Param \"lookback_days\"}} days. " +
				"Shut it down or deallocate it if it is not serving traffic.",
		},
		{
			ScenarioID:         "vm_oversized",
			Description:        "Running VM whose peak CPU fits a smaller size",
			Category:           types.CategoryUtilization,
			AppliesTo:          []types.ResourceType{types.ResourceVirtualMachine},
			RequiredAttributes: []string{types.AttrPowerState, types.AttrVMSize},
			RequiredMetrics: []MetricRequirement{
				{Metric: metrics.CPUPercentage, Aggregation: metrics.Maximum, LookbackParam: ParamLookbackDays},
			},
			Params: []ParamSpec{
				lookbackParam(14),
				NumberParam(paramMaxCPUPct, 40, 0, 100, "peak CPU below which one size down is enough"),
			},
			Confidence:   confidence.DescendingBreakpoints(40, 25, 10),
			Precondition: canDownsizeVM,
			Predicate: func(in *Input) (bool, error) {
				if !canDownsizeVM(in) {
					return false, nil
				}
				return peakCPU(in) < in.Params.Float(paramMaxCPUPct), nil
			},
			Cost: func(in *Input) (Cost, error) {
				size := in.Resource.Attributes.GetString(types.AttrVMSize)
				smaller, _ := in.Pricing.SmallerVMSize(size)
				c, err := savingsCost(in, pricing.WithTier(smaller))
				if err != nil {
					return Cost{}, err
				}
				c.Metadata["current_size"] = size
				c.Metadata["recommended_size"] = smaller
				c.Metadata["peak_cpu_percent"] = formatFloat(peakCPU(in))
				return c, nil
			},
			Signal: peakCPU,
			Recommendation: "VM {{.Resource.Name}} peaked at {{.Meta \"peak_cpu_percent\"}}% CPU. " +
				"Resize from {{.Meta \"current_size\"}} to {{.Meta \"recommended_size\"}}.",
		},
	}
}

// canDownsizeVM reports whether the VM runs and a smaller size is priced
func canDownsizeVM(in *Input) bool {
	if !isRunning(in.Resource) {
		return false
	}
	_, ok := in.Pricing.SmallerVMSize(in.Resource.Attributes.GetString(types.AttrVMSize))
	return ok
}

func avgCPU(in *Input) float64 {
	return in.Metric(metrics.CPUPercentage, metrics.Average).Value
}

func peakCPU(in *Input) float64 {
	return in.Metric(metrics.CPUPercentage, metrics.Maximum).Value
}
