package pricing

import (
	"github.com/shopspring/decimal"

	"cloud-waste/internal/errors"
)

var one = decimal.NewFromInt(1)

// ReplicationMultiplier returns the factor for a replication class.
// An empty class is neutral.
func (t *Table) ReplicationMultiplier(class string) (decimal.Decimal, error) {
	if class == "" {
		return one, nil
	}
	m, ok := t.Replication[class]
	if !ok {
		return decimal.Zero, errors.NotFound("replication class", class)
	}
	return m, nil
}

// ZoneRedundancyMultiplier returns the zone-redundant deployment factor
func (t *Table) ZoneRedundancyMultiplier(enabled bool) decimal.Decimal {
	if !enabled {
		return one
	}
	return t.ZoneRedundancy
}

// CustomerManagedKeyMultiplier returns the customer-managed key factor
func (t *Table) CustomerManagedKeyMultiplier(enabled bool) decimal.Decimal {
	if !enabled {
		return one
	}
	return t.CustomerManagedKey
}

// BurstingMultiplier returns the on-demand bursting factor
func (t *Table) BurstingMultiplier(enabled bool) decimal.Decimal {
	if !enabled {
		return one
	}
	return t.Bursting
}

// applyMultipliers composes factors in a fixed order:
// replication, zone redundancy, customer-managed key, bursting.
func (t *Table) applyMultipliers(base decimal.Decimal, c Configuration) (decimal.Decimal, error) {
	repl, err := t.ReplicationMultiplier(c.Replication)
	if err != nil {
		return decimal.Zero, err
	}
	v := base.Mul(repl)
	v = v.Mul(t.ZoneRedundancyMultiplier(c.ZoneRedundant))
	v = v.Mul(t.CustomerManagedKeyMultiplier(c.CustomerManagedKey))
	v = v.Mul(t.BurstingMultiplier(c.Bursting))
	return v, nil
}
