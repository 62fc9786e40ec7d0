// Package pricing prices resource snapshots from a versioned price table.
// All arithmetic is decimal; results are rounded to the cent.
package pricing

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"cloud-waste/core/determinism"
	"cloud-waste/internal/errors"
)

//go:embed default_table.yaml
var defaultTableYAML []byte

// Table is an immutable, versioned price list
type Table struct {
	Version       string
	Currency      string
	HoursPerMonth decimal.Decimal

	DiskPerGB     map[string]decimal.Decimal
	DiskLowerTier map[string]string

	SnapshotPerGB decimal.Decimal

	Replication map[string]decimal.Decimal

	ZoneRedundancy     decimal.Decimal
	CustomerManagedKey decimal.Decimal
	Bursting           decimal.Decimal

	NATHourly decimal.Decimal
	NATPerGB  decimal.Decimal

	PublicIPHourly map[string]decimal.Decimal

	VMHourly      map[string]decimal.Decimal
	VMSmallerSize map[string]string

	PlanHourly             map[string]decimal.Decimal
	PlanStandardEquivalent map[string]string

	StoragePerGB map[string]decimal.Decimal

	hash determinism.ContentHash
}

// Hash returns the SHA-256 of the source document
func (t *Table) Hash() determinism.ContentHash {
	return t.hash
}

type tableDocument struct {
	Version       string  `yaml:"version"`
	Currency      string  `yaml:"currency"`
	HoursPerMonth float64 `yaml:"hours_per_month"`
	Disk          struct {
		PerGBMonth map[string]float64 `yaml:"per_gb_month"`
		LowerTier  map[string]string  `yaml:"lower_tier"`
	} `yaml:"disk"`
	Snapshot struct {
		PerGBMonth float64 `yaml:"per_gb_month"`
	} `yaml:"snapshot"`
	Replication map[string]float64 `yaml:"replication"`
	Multipliers struct {
		ZoneRedundancy     float64 `yaml:"zone_redundancy"`
		CustomerManagedKey float64 `yaml:"customer_managed_key"`
		Bursting           float64 `yaml:"bursting"`
	} `yaml:"multipliers"`
	NATGateway struct {
		Hourly         float64 `yaml:"hourly"`
		PerGBProcessed float64 `yaml:"per_gb_processed"`
	} `yaml:"nat_gateway"`
	PublicIP struct {
		Hourly map[string]float64 `yaml:"hourly"`
	} `yaml:"public_ip"`
	VirtualMachine struct {
		Hourly      map[string]float64 `yaml:"hourly"`
		SmallerSize map[string]string  `yaml:"smaller_size"`
	} `yaml:"virtual_machine"`
	AppServicePlan struct {
		Hourly             map[string]float64 `yaml:"hourly"`
		StandardEquivalent map[string]string  `yaml:"standard_equivalent"`
	} `yaml:"app_service_plan"`
	StorageAccount struct {
		PerGBMonth map[string]float64 `yaml:"per_gb_month"`
	} `yaml:"storage_account"`
}

// DefaultTable returns the embedded reference price table
func DefaultTable() *Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded price table is invalid: %v", err))
	}
	return t
}

// LoadTable reads a price table from a YAML file
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypePricing, err, "read price table %s", path)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML price table document
func ParseTable(data []byte) (*Table, error) {
	var doc tableDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Pricing("decode price table", err)
	}
	if doc.Version == "" {
		return nil, errors.New(errors.TypePricing, "price table version is required")
	}
	if doc.HoursPerMonth <= 0 {
		return nil, errors.New(errors.TypePricing, "hours_per_month must be positive")
	}
	if doc.Currency == "" {
		doc.Currency = "USD"
	}

	t := &Table{
		Version:                doc.Version,
		Currency:               doc.Currency,
		HoursPerMonth:          decimal.NewFromFloat(doc.HoursPerMonth),
		DiskPerGB:              decimals(doc.Disk.PerGBMonth),
		DiskLowerTier:          copyStrings(doc.Disk.LowerTier),
		SnapshotPerGB:          decimal.NewFromFloat(doc.Snapshot.PerGBMonth),
		Replication:            decimals(doc.Replication),
		ZoneRedundancy:         multiplier(doc.Multipliers.ZoneRedundancy),
		CustomerManagedKey:     multiplier(doc.Multipliers.CustomerManagedKey),
		Bursting:               multiplier(doc.Multipliers.Bursting),
		NATHourly:              decimal.NewFromFloat(doc.NATGateway.Hourly),
		NATPerGB:               decimal.NewFromFloat(doc.NATGateway.PerGBProcessed),
		PublicIPHourly:         decimals(doc.PublicIP.Hourly),
		VMHourly:               decimals(doc.VirtualMachine.Hourly),
		VMSmallerSize:          copyStrings(doc.VirtualMachine.SmallerSize),
		PlanHourly:             decimals(doc.AppServicePlan.Hourly),
		PlanStandardEquivalent: copyStrings(doc.AppServicePlan.StandardEquivalent),
		StoragePerGB:           decimals(doc.StorageAccount.PerGBMonth),
		hash:                   determinism.ComputeHash(data),
	}
	if _, ok := t.Replication["LRS"]; !ok {
		t.Replication["LRS"] = decimal.NewFromInt(1)
	}
	for class, m := range t.Replication {
		if m.IsNegative() || m.IsZero() {
			return nil, errors.Newf(errors.TypePricing, "replication multiplier %s must be positive", class)
		}
	}
	return t, nil
}

func decimals(in map[string]float64) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = decimal.NewFromFloat(v)
	}
	return out
}

func copyStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// multiplier treats an absent multiplier as neutral
func multiplier(f float64) decimal.Decimal {
	if f <= 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(f)
}
