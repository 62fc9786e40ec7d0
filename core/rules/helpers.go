package rules

import (
	"strconv"
	"strings"
	"unicode"

	"cloud-waste/core/confidence"
	"cloud-waste/core/pricing"
	"cloud-waste/core/types"
)

// Common parameter names
const (
	ParamMinAgeDays   = "min_age_days"
	ParamLookbackDays = "lookback_days"
	ParamDevKeywords  = "dev_environment_keywords"
	ParamMaxUtilPct   = "max_utilization_percent"
)

var defaultDevKeywords = []string{"dev", "development", "test", "testing", "qa", "sandbox", "staging"}

// environmentTags are checked, in order, for a non-production marker
var environmentTags = []string{"environment", "env", "stage"}

func minAgeParam(def int) ParamSpec {
	return IntParam(ParamMinAgeDays, def, 0, 3650, "days in the wasteful state before a finding is raised")
}

func lookbackParam(def int) ParamSpec {
	return IntParam(ParamLookbackDays, def, 1, 93, "metric window in days")
}

func devKeywordsParam() ParamSpec {
	return StringsParam(ParamDevKeywords, defaultDevKeywords,
		"environment tag values or resource group tokens that mark non-production")
}

func ageBreakpoints() confidence.Breakpoints {
	return confidence.AscendingBreakpoints(7, 30, 90)
}

// IsDevEnvironment reports whether the environment tags or the resource
// group name mark r as non-production.
func IsDevEnvironment(r *types.Resource, keywords []string) bool {
	for _, tag := range environmentTags {
		if v, ok := r.Tags.Get(tag); ok && matchesKeyword(v, keywords) {
			return true
		}
	}
	return matchesKeyword(r.ResourceGroup, keywords)
}

func matchesKeyword(value string, keywords []string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(value), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	for _, tok := range tokens {
		for _, kw := range keywords {
			if tok == strings.ToLower(kw) {
				return true
			}
		}
	}
	return false
}

func daysSignal(in *Input) float64 {
	return float64(in.Days())
}

// wasteCost prices a resource whose full cost is waste, accruing past spend
// over the days spent in the wasteful state.
func wasteCost(in *Input) (Cost, error) {
	monthly, err := in.Pricing.MonthlyCost(in.Resource)
	if err != nil {
		return Cost{}, err
	}
	wasted := in.Pricing.Accrued(monthly, in.Days())
	return Cost{
		Monthly:       monthly,
		AlreadyWasted: &wasted,
		Savings:       monthly,
		Metadata:      map[string]string{"days_in_state": strconv.Itoa(in.Days())},
	}, nil
}

// fullCost prices a resource whose full cost is recoverable but whose past
// spend is not attributable.
func fullCost(in *Input) (Cost, error) {
	monthly, err := in.Pricing.MonthlyCost(in.Resource)
	if err != nil {
		return Cost{}, err
	}
	return Cost{Monthly: monthly, Savings: monthly, Metadata: map[string]string{}}, nil
}

// savingsCost prices the resource against a cheaper configuration
func savingsCost(in *Input, changes ...pricing.Change) (Cost, error) {
	q, err := in.Pricing.Savings(in.Resource, changes...)
	if err != nil {
		return Cost{}, err
	}
	return Cost{
		Monthly:       q.Current,
		Savings:       q.Savings,
		ClaimsSavings: true,
		Metadata: map[string]string{
			"alternative_monthly_cost": q.Alternative.StringFixed(2),
		},
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
