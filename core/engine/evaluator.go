package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cloud-waste/core/confidence"
	"cloud-waste/core/determinism"
	"cloud-waste/core/metrics"
	"cloud-waste/core/ruleconfig"
	"cloud-waste/core/rules"
	"cloud-waste/core/types"
	"cloud-waste/internal/errors"
)

// resourceOutcome is what one worker produced for one resource
type resourceOutcome struct {
	findings []types.Finding
	skips    []types.Skip

	// dropped means cancellation interrupted evaluation; findings are discarded
	dropped bool
}

// evaluateResource runs every enabled rule for the resource's type in catalog order
func (e *Engine) evaluateResource(ctx context.Context, res *types.Resource, state *scanState, logger *zap.Logger) resourceOutcome {
	var out resourceOutcome
	log := logger.With(zap.String("resource_id", res.ID), zap.String("resource_type", string(res.Type)))

	for _, rule := range e.catalog.ForType(res.Type) {
		setting, ok := state.effective.Setting(rule.ScenarioID)
		if !ok || !setting.Enabled {
			continue
		}
		if !rule.HasRequiredAttributes(res) {
			continue
		}

		in := &rules.Input{
			Resource: res,
			Now:      state.now,
			Params:   setting.Params,
			Pricing:  e.pricing,
			Metrics:  map[string]metrics.Result{},
			Group:    state.groups.lookup(rule, res),
		}

		ready, err := checkReady(rule, in)
		if err != nil {
			log.Warn("rule failed", zap.String("scenario_id", rule.ScenarioID), zap.Error(err))
			out.skips = append(out.skips, skip(res, rule, types.SkipRuleError, err.Error()))
			continue
		}
		if !ready {
			continue
		}

		if rule.Phase() == rules.PhaseMetrics {
			if state.gateway == nil {
				out.skips = append(out.skips, skip(res, rule, types.SkipPhaseDisabled, "metric-based rules disabled for this scan"))
				continue
			}
			reason, err := e.fetchMetrics(ctx, state.gateway, rule, in)
			if err != nil {
				log.Debug("evaluation interrupted", zap.String("scenario_id", rule.ScenarioID), zap.Error(err))
				return resourceOutcome{dropped: true}
			}
			if reason != "" {
				out.skips = append(out.skips, skip(res, rule, types.SkipMetricUnavailable, reason))
				continue
			}
		}

		finding, err := e.applyRule(rule, in, setting)
		if err != nil {
			log.Warn("rule failed", zap.String("scenario_id", rule.ScenarioID), zap.Error(err))
			out.skips = append(out.skips, skip(res, rule, types.SkipRuleError, err.Error()))
			continue
		}
		if finding != nil {
			out.findings = append(out.findings, *finding)
		}
	}
	return out
}

// fetchMetrics fills in.Metrics. It returns a non-empty reason when a required
// metric is unavailable, and an error only when ctx ended the evaluation.
func (e *Engine) fetchMetrics(ctx context.Context, gw metrics.Gateway, rule *rules.Rule, in *rules.Input) (string, error) {
	for _, req := range rule.RequiredMetrics {
		days := in.Params.Int(req.LookbackParam)
		q := metrics.Query{
			ResourceID:  in.Resource.ID,
			MetricName:  req.Metric,
			Aggregation: req.Aggregation,
			Window:      metrics.LookbackWindow(in.Now, days),
		}
		result, err := gw.Query(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return fmt.Sprintf("%s: %v", req.Metric, err), nil
		}
		result = result.Normalize()
		if result.Unavailable {
			return fmt.Sprintf("%s: %s", req.Metric, result.Reason), nil
		}
		in.Metrics[req.Key()] = result
	}
	return "", nil
}

// checkReady runs the rule's attribute-only precondition, converting a panic
// into a rule error.
func checkReady(rule *rules.Rule, in *rules.Input) (ready bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ready = false
			err = errors.Rule(rule.ScenarioID, fmt.Errorf("panic: %v", p))
		}
	}()
	return rule.Ready(in), nil
}

// applyRule evaluates one rule. A nil finding with a nil error means the
// rule did not match. Panics are converted to rule errors.
func (e *Engine) applyRule(rule *rules.Rule, in *rules.Input, setting ruleconfig.Setting) (f *types.Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			f = nil
			err = errors.Rule(rule.ScenarioID, fmt.Errorf("panic: %v", p))
		}
	}()

	matched, err := rule.Predicate(in)
	if err != nil {
		return nil, errors.Rule(rule.ScenarioID, err)
	}
	if !matched {
		return nil, nil
	}

	cost, err := rule.Cost(in)
	if err != nil {
		return nil, errors.Rule(rule.ScenarioID, err)
	}
	if cost.Monthly.IsNegative() {
		return nil, errors.Rule(rule.ScenarioID, fmt.Errorf("negative monthly cost %s", cost.Monthly))
	}
	if cost.ClaimsSavings && !cost.Savings.IsPositive() {
		return nil, nil
	}
	if cost.Savings.IsNegative() {
		cost.Savings = decimal.Zero
	}
	if cost.AlreadyWasted != nil && cost.AlreadyWasted.IsNegative() {
		zero := decimal.Zero
		cost.AlreadyWasted = &zero
	}

	signal := rule.Signal(in)
	grade := confidence.Grade(signal, setting.Confidence)

	text, err := rule.Render(rules.RecommendationData{
		Resource: in.Resource,
		Params:   in.Params,
		Cost:     cost,
		Days:     in.Days(),
		Currency: e.pricing.Currency(),
	})
	if err != nil {
		return nil, errors.Rule(rule.ScenarioID, err)
	}

	metadata := make(map[string]string, len(cost.Metadata)+1)
	for k, v := range cost.Metadata {
		metadata[k] = v
	}
	metadata["confidence_signal"] = strconv.FormatFloat(signal, 'f', -1, 64)

	res := in.Resource
	return &types.Finding{
		ID:                determinism.FindingID(res.ID, rule.ScenarioID, e.catalog.Version()),
		ResourceID:        res.ID,
		ResourceType:      res.Type,
		ResourceName:      res.Name,
		ScenarioID:        rule.ScenarioID,
		Category:          rule.Category,
		MonthlyCost:       cost.Monthly.Round(2),
		AlreadyWasted:     roundPtr(cost.AlreadyWasted),
		SavingsPotential:  cost.Savings.Round(2),
		Currency:          e.pricing.Currency(),
		Confidence:        grade,
		Recommendation:    text,
		Metadata:          metadata,
		PriceTableVersion: e.pricing.Version(),
	}, nil
}

func roundPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

func skip(res *types.Resource, rule *rules.Rule, kind types.SkipKind, reason string) types.Skip {
	return types.Skip{
		ResourceID: res.ID,
		ScenarioID: rule.ScenarioID,
		Kind:       kind,
		Reason:     reason,
	}
}
