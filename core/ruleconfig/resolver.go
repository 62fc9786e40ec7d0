package ruleconfig

import (
	"fmt"

	"go.uber.org/zap"

	"cloud-waste/core/confidence"
	"cloud-waste/core/determinism"
	"cloud-waste/core/rules"
	"cloud-waste/core/types"
	"cloud-waste/internal/logging"
)

// Setting is the effective configuration of one rule
type Setting struct {
	Enabled    bool
	Params     rules.Values
	Confidence confidence.Breakpoints
}

// Warning records an override that was rejected in favor of the default
type Warning struct {
	ResourceType string `json:"resource_type" yaml:"resource_type"`
	ScenarioID   string `json:"scenario_id" yaml:"scenario_id"`
	Field        string `json:"field" yaml:"field"`
	Message      string `json:"message" yaml:"message"`
}

// String renders the warning for logs and reports
func (w Warning) String() string {
	return fmt.Sprintf("%s.%s.%s: %s", w.ResourceType, w.ScenarioID, w.Field, w.Message)
}

// Effective is the resolved configuration for every rule in a catalog
type Effective struct {
	settings map[string]Setting
	Warnings []Warning
}

// Setting returns the effective configuration of a scenario
func (e *Effective) Setting(scenarioID string) (Setting, bool) {
	s, ok := e.settings[scenarioID]
	return s, ok
}

// Defaults resolves the catalog without overrides
func Defaults(c *rules.Catalog) *Effective {
	e := &Effective{settings: make(map[string]Setting, c.Len())}
	for _, r := range c.Rules() {
		e.settings[r.ScenarioID] = Setting{
			Enabled:    true,
			Params:     rules.DefaultValues(r.Params),
			Confidence: r.Confidence,
		}
	}
	return e
}

// Resolve merges overrides onto catalog defaults. It never fails: unknown
// keys are ignored, and invalid values keep the default with a Warning.
func Resolve(c *rules.Catalog, o Overrides, logger *zap.Logger) *Effective {
	logger = logging.OrDefault(logger)
	e := Defaults(c)

	for _, typeKey := range determinism.SortedKeys(o) {
		rt, err := types.ParseResourceType(typeKey)
		if err != nil {
			logger.Debug("ignoring unknown resource type in rule config", zap.String("type", typeKey))
			continue
		}
		scenarios := o[typeKey]
		for _, scenarioID := range determinism.SortedKeys(scenarios) {
			rule, ok := c.Lookup(scenarioID)
			if !ok || !rule.Applies(rt) {
				logger.Debug("ignoring unknown scenario in rule config",
					zap.String("type", typeKey), zap.String("scenario_id", scenarioID))
				continue
			}
			s := e.settings[scenarioID]
			s, warnings := apply(rule, s, typeKey, scenarios[scenarioID], logger)
			e.settings[scenarioID] = s
			e.Warnings = append(e.Warnings, warnings...)
		}
	}

	for _, w := range e.Warnings {
		logger.Warn("rule config value rejected, using default",
			zap.String("type", w.ResourceType),
			zap.String("scenario_id", w.ScenarioID),
			zap.String("field", w.Field),
			zap.String("reason", w.Message))
	}
	return e
}

func apply(rule *rules.Rule, s Setting, typeKey string, fields map[string]any, logger *zap.Logger) (Setting, []Warning) {
	var warnings []Warning
	warn := func(field, format string, args ...any) {
		warnings = append(warnings, Warning{
			ResourceType: typeKey,
			ScenarioID:   rule.ScenarioID,
			Field:        field,
			Message:      fmt.Sprintf(format, args...),
		})
	}

	specs := make(map[string]rules.ParamSpec, len(rule.Params))
	for _, p := range rule.Params {
		specs[p.Name] = p
	}

	for _, field := range determinism.SortedKeys(fields) {
		raw := fields[field]
		switch field {
		case FieldEnabled:
			b, ok := raw.(bool)
			if !ok {
				warn(field, "expected bool, got %T", raw)
				continue
			}
			s.Enabled = b
		case FieldConfidence:
			bp, err := mergeBreakpoints(s.Confidence, raw)
			if err != nil {
				warn(field, "%v", err)
				continue
			}
			s.Confidence = bp
		default:
			spec, ok := specs[field]
			if !ok {
				logger.Debug("ignoring unknown rule config field",
					zap.String("scenario_id", rule.ScenarioID), zap.String("field", field))
				continue
			}
			v, err := spec.Coerce(raw)
			if err != nil {
				warn(field, "%v", err)
				continue
			}
			s.Params = s.Params.With(field, v)
		}
	}
	return s, warnings
}

// mergeBreakpoints overlays medium/high/critical onto the defaults. The
// direction belongs to the rule and cannot be overridden.
func mergeBreakpoints(def confidence.Breakpoints, raw any) (confidence.Breakpoints, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return def, fmt.Errorf("expected a map of breakpoints, got %T", raw)
	}
	bp := def
	targets := map[string]*float64{"medium": &bp.Medium, "high": &bp.High, "critical": &bp.Critical}
	for _, k := range determinism.SortedKeys(m) {
		dst, known := targets[k]
		if !known {
			continue
		}
		f, err := rules.NumberParam(k, 0, -1e18, 1e18, "").Coerce(m[k])
		if err != nil {
			return def, fmt.Errorf("%s: %v", k, err)
		}
		*dst = f.(float64)
	}
	if err := bp.Validate(); err != nil {
		return def, err
	}
	return bp, nil
}
