package pricing

import (
	"github.com/shopspring/decimal"

	"cloud-waste/core/types"
	"cloud-waste/internal/errors"
)

var daysPerMonth = decimal.NewFromInt(30)

// Model prices resources against one price table. It is safe for
// concurrent use.
type Model struct {
	table *Table
}

// NewModel creates a model over t, or over the embedded table when t is nil
func NewModel(t *Table) *Model {
	if t == nil {
		t = DefaultTable()
	}
	return &Model{table: t}
}

// Table returns the underlying price table
func (m *Model) Table() *Table { return m.table }

// Version returns the price table version
func (m *Model) Version() string { return m.table.Version }

// Currency returns the price table currency
func (m *Model) Currency() string { return m.table.Currency }

// Quote is the result of pricing an alternative configuration
type Quote struct {
	Current     decimal.Decimal
	Alternative decimal.Decimal
	Savings     decimal.Decimal
}

// MonthlyCost prices the resource as it is configured now
func (m *Model) MonthlyCost(r *types.Resource) (decimal.Decimal, error) {
	return m.Price(ConfigurationOf(r))
}

// Alternative prices the resource after applying changes
func (m *Model) Alternative(r *types.Resource, changes ...Change) (decimal.Decimal, error) {
	c := ConfigurationOf(r)
	for _, change := range changes {
		change(&c)
	}
	return m.Price(c)
}

// Savings prices the current and alternative configurations. Savings may be
// zero or negative; callers claiming savings must check Savings.IsPositive.
func (m *Model) Savings(r *types.Resource, changes ...Change) (Quote, error) {
	current, err := m.MonthlyCost(r)
	if err != nil {
		return Quote{}, err
	}
	alt, err := m.Alternative(r, changes...)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Current: current, Alternative: alt, Savings: current.Sub(alt)}, nil
}

// Accrued estimates spend over days at a monthly rate (30-day months)
func (m *Model) Accrued(monthly decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.Zero
	}
	return monthly.Mul(decimal.NewFromInt(int64(days))).Div(daysPerMonth).Round(2)
}

// Price computes the monthly cost of a configuration rounded to the cent
func (m *Model) Price(c Configuration) (decimal.Decimal, error) {
	base, err := m.base(c)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.TypePricing, err, "price %s", c.Type)
	}
	v, err := m.table.applyMultipliers(base, c)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.TypePricing, err, "price %s", c.Type)
	}
	return v.Round(2), nil
}

func (m *Model) base(c Configuration) (decimal.Decimal, error) {
	t := m.table
	switch c.Type {
	case types.ResourceDisk:
		rate, ok := t.DiskPerGB[c.Tier]
		if !ok {
			return decimal.Zero, errors.NotFound("disk tier", c.Tier)
		}
		return c.SizeGB.Mul(rate), nil
	case types.ResourceSnapshot:
		return c.SizeGB.Mul(t.SnapshotPerGB), nil
	case types.ResourceNATGateway:
		return t.NATHourly.Mul(t.HoursPerMonth).Add(c.DataGB.Mul(t.NATPerGB)), nil
	case types.ResourcePublicIP:
		rate, ok := t.PublicIPHourly[c.Tier]
		if !ok {
			return decimal.Zero, errors.NotFound("public IP sku", c.Tier)
		}
		return rate.Mul(t.HoursPerMonth), nil
	case types.ResourceVirtualMachine:
		rate, ok := t.VMHourly[c.Tier]
		if !ok {
			return decimal.Zero, errors.NotFound("VM size", c.Tier)
		}
		return rate.Mul(t.HoursPerMonth), nil
	case types.ResourceAppServicePlan:
		rate, ok := t.PlanHourly[c.Tier]
		if !ok {
			return decimal.Zero, errors.NotFound("app service plan tier", c.Tier)
		}
		if c.Instances < 1 {
			return decimal.Zero, errors.Newf(errors.TypePricing, "instance count %d must be at least 1", c.Instances)
		}
		return rate.Mul(t.HoursPerMonth).Mul(decimal.NewFromInt(int64(c.Instances))), nil
	case types.ResourceStorageAccount:
		rate, ok := t.StoragePerGB[c.Tier]
		if !ok {
			return decimal.Zero, errors.NotFound("storage access tier", c.Tier)
		}
		return c.SizeGB.Mul(rate), nil
	default:
		return decimal.Zero, errors.NotFound("resource type", string(c.Type))
	}
}

// LowerDiskTier returns the next cheaper disk tier
func (m *Model) LowerDiskTier(tier string) (string, bool) {
	lower, ok := m.table.DiskLowerTier[tier]
	return lower, ok
}

// SmallerVMSize returns the next smaller VM size in the same family
func (m *Model) SmallerVMSize(size string) (string, bool) {
	smaller, ok := m.table.VMSmallerSize[size]
	return smaller, ok
}

// StandardEquivalent returns the standard plan tier matching a premium tier
func (m *Model) StandardEquivalent(tier string) (string, bool) {
	std, ok := m.table.PlanStandardEquivalent[tier]
	return std, ok
}
