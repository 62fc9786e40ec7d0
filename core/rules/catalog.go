package rules

import (
	"sync"
	"text/template"

	"cloud-waste/core/types"
	"cloud-waste/internal/errors"
)

// CatalogVersion is the version of the built-in scenario set. It is part
// of every finding ID.
const CatalogVersion = "2024.10"

// Catalog is an ordered, versioned, immutable set of rules
type Catalog struct {
	version string
	rules   []*Rule
	byID    map[string]*Rule
	byType  map[types.ResourceType][]*Rule
}

// NewCatalog validates and freezes rules in the given order. Duplicate
// scenario IDs, missing functions, invalid breakpoints, defaults outside
// their range and unparsable recommendations are rejected.
func NewCatalog(version string, rules ...*Rule) (*Catalog, error) {
	if version == "" {
		return nil, errors.New(errors.TypeRule, "catalog version is required")
	}
	c := &Catalog{
		version: version,
		byID:    make(map[string]*Rule, len(rules)),
		byType:  make(map[types.ResourceType][]*Rule),
	}
	for _, src := range rules {
		if src == nil {
			return nil, errors.New(errors.TypeRule, "nil rule")
		}
		r := *src
		if err := validateRule(&r); err != nil {
			return nil, err
		}
		if _, dup := c.byID[r.ScenarioID]; dup {
			return nil, errors.Newf(errors.TypeRule, "duplicate scenario id %q", r.ScenarioID)
		}
		tmpl, err := template.New(r.ScenarioID).Option("missingkey=zero").Parse(r.Recommendation)
		if err != nil {
			return nil, errors.Rule(r.ScenarioID, err)
		}
		r.tmpl = tmpl
		r.AppliesTo = append([]types.ResourceType(nil), r.AppliesTo...)
		r.RequiredAttributes = append([]string(nil), r.RequiredAttributes...)
		r.RequiredMetrics = append([]MetricRequirement(nil), r.RequiredMetrics...)
		r.Params = append([]ParamSpec(nil), r.Params...)

		rp := &r
		c.rules = append(c.rules, rp)
		c.byID[r.ScenarioID] = rp
		for _, t := range r.AppliesTo {
			c.byType[t] = append(c.byType[t], rp)
		}
	}
	return c, nil
}

func validateRule(r *Rule) error {
	if r.ScenarioID == "" {
		return errors.New(errors.TypeRule, "scenario id is required")
	}
	fail := func(format string, args ...any) error {
		return errors.Rule(r.ScenarioID, errors.Newf(errors.TypeRule, format, args...))
	}
	if len(r.AppliesTo) == 0 {
		return fail("rule applies to no resource type")
	}
	for _, t := range r.AppliesTo {
		if !t.IsValid() {
			return fail("unknown resource type %q", t)
		}
	}
	if r.Category.Priority() == 0 {
		return fail("unknown category %q", r.Category)
	}
	if r.Predicate == nil || r.Cost == nil || r.Signal == nil {
		return fail("predicate, cost and signal functions are required")
	}
	if err := r.Confidence.Validate(); err != nil {
		return fail("confidence: %v", err)
	}

	declared := make(map[string]ParamSpec, len(r.Params))
	for _, p := range r.Params {
		if _, dup := declared[p.Name]; dup {
			return fail("duplicate param %q", p.Name)
		}
		if _, err := p.Coerce(p.Default); err != nil {
			return fail("param %s default: %v", p.Name, err)
		}
		declared[p.Name] = p
	}
	for _, m := range r.RequiredMetrics {
		p, ok := declared[m.LookbackParam]
		if !ok || p.Kind != ParamInt {
			return fail("metric %s needs integer lookback param %q", m.Metric, m.LookbackParam)
		}
	}
	return nil
}

// Version returns the catalog version
func (c *Catalog) Version() string { return c.version }

// Rules returns the rules in catalog order
func (c *Catalog) Rules() []*Rule {
	return append([]*Rule(nil), c.rules...)
}

// Len returns the number of rules
func (c *Catalog) Len() int { return len(c.rules) }

// Lookup finds a rule by scenario ID
func (c *Catalog) Lookup(scenarioID string) (*Rule, bool) {
	r, ok := c.byID[scenarioID]
	return r, ok
}

// ForType returns the rules that apply to t, in catalog order
func (c *Catalog) ForType(t types.ResourceType) []*Rule {
	return append([]*Rule(nil), c.byType[t]...)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultRules returns fresh copies of the built-in scenarios in catalog order
func DefaultRules() []*Rule {
	var all []*Rule
	all = append(all, diskRules()...)
	all = append(all, snapshotRules()...)
	all = append(all, natGatewayRules()...)
	all = append(all, publicIPRules()...)
	all = append(all, virtualMachineRules()...)
	all = append(all, appServicePlanRules()...)
	all = append(all, storageAccountRules()...)
	return all
}

// DefaultCatalog returns the shared built-in catalog
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog(CatalogVersion, DefaultRules()...)
		if err != nil {
			panic("built-in catalog is invalid: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
