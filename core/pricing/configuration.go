package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"cloud-waste/core/types"
)

// Configuration is the set of priced dimensions of a resource. Alternatives
// are priced by changing a copy of it.
type Configuration struct {
	Type types.ResourceType

	// Tier is the disk tier, VM size, plan tier, IP SKU or storage access tier
	Tier string

	// Replication is the redundancy class (LRS, ZRS, GRS, ...)
	Replication string

	SizeGB    decimal.Decimal
	Instances int
	DataGB    decimal.Decimal

	ZoneRedundant      bool
	CustomerManagedKey bool
	Bursting           bool
}

// Change modifies a configuration to describe a cheaper alternative
type Change func(*Configuration)

// WithTier swaps the priced tier
func WithTier(tier string) Change {
	return func(c *Configuration) { c.Tier = tier }
}

// WithReplication swaps the replication class
func WithReplication(class string) Change {
	return func(c *Configuration) { c.Replication = class }
}

// WithInstances sets the instance count
func WithInstances(n int) Change {
	return func(c *Configuration) { c.Instances = n }
}

// WithoutCustomerManagedKey switches to platform-managed encryption
func WithoutCustomerManagedKey() Change {
	return func(c *Configuration) { c.CustomerManagedKey = false }
}

// WithoutBursting disables on-demand bursting
func WithoutBursting() Change {
	return func(c *Configuration) { c.Bursting = false }
}

// ConfigurationOf derives the priced dimensions from a snapshot
func ConfigurationOf(r *types.Resource) Configuration {
	a := r.Attributes
	c := Configuration{Type: r.Type, Instances: 1}

	switch r.Type {
	case types.ResourceDisk:
		c.Tier, c.Replication = SplitSKU(a.GetString(types.AttrSKU))
		c.SizeGB = decimal.NewFromFloat(a.GetFloat(types.AttrSizeGB))
		c.CustomerManagedKey = IsCustomerManagedKey(a.GetString(types.AttrEncryption))
		c.Bursting = a.GetBool(types.AttrBurstingEnabled)
	case types.ResourceSnapshot:
		c.SizeGB = decimal.NewFromFloat(a.GetFloat(types.AttrSizeGB))
	case types.ResourcePublicIP:
		c.Tier = a.GetString(types.AttrSKU)
	case types.ResourceVirtualMachine:
		c.Tier = a.GetString(types.AttrVMSize)
	case types.ResourceAppServicePlan:
		c.Tier = a.GetString(types.AttrTier)
		c.Instances = a.GetInt(types.AttrInstanceCount)
		c.ZoneRedundant = a.GetBool(types.AttrZoneRedundant)
	case types.ResourceStorageAccount:
		_, c.Replication = SplitSKU(a.GetString(types.AttrReplication))
		c.SizeGB = decimal.NewFromFloat(a.GetFloat(types.AttrUsedCapacityGB))
		c.Tier = a.GetString(types.AttrAccessTier)
		if c.Tier == "" {
			c.Tier = "Hot"
		}
	}
	return c
}

// SplitSKU splits "Premium_ZRS" into ("Premium", "ZRS"). A bare class such
// as "GRS" or "RA-GRS" yields an empty tier. Missing replication means LRS.
func SplitSKU(sku string) (tier, replication string) {
	sku = strings.TrimSpace(sku)
	if i := strings.LastIndex(sku, "_"); i >= 0 {
		tier, replication = sku[:i], sku[i+1:]
	} else if isReplicationClass(sku) {
		replication = sku
	} else {
		tier = sku
	}
	replication = strings.ToUpper(strings.ReplaceAll(replication, "-", ""))
	if replication == "" {
		replication = "LRS"
	}
	return tier, replication
}

func isReplicationClass(s string) bool {
	switch strings.ToUpper(strings.ReplaceAll(s, "-", "")) {
	case "LRS", "ZRS", "GRS", "RAGRS", "GZRS", "RAGZRS":
		return true
	}
	return false
}

// IsCustomerManagedKey reports whether an encryption type uses a customer key
func IsCustomerManagedKey(encryption string) bool {
	return strings.Contains(strings.ToLower(encryption), "customerkey")
}
