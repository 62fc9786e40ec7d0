package types

// Attribute keys used by the catalog. Collectors map provider fields onto
// these names.
const (
	AttrState            = "state"
	AttrSizeGB           = "size_gb"
	AttrSKU              = "sku"
	AttrEncryption       = "encryption"
	AttrBurstingEnabled  = "bursting_enabled"
	AttrZones            = "zones"
	AttrVMPowerState     = "vm_power_state"
	AttrLastStateChange  = "last_state_change"
	AttrSourceResourceID = "source_resource_id"
	AttrSourceExists     = "source_exists"
	AttrIncremental      = "incremental"
	AttrSubnets          = "subnets"
	AttrVirtualNetworkID = "virtual_network_id"
	AttrAssociated       = "associated"
	AttrVMSize           = "vm_size"
	AttrPowerState       = "power_state"
	AttrTier             = "tier"
	AttrInstanceCount    = "instance_count"
	AttrSiteCount        = "site_count"
	AttrZoneRedundant    = "zone_redundant"
	AttrReplication      = "replication"
	AttrUsedCapacityGB   = "used_capacity_gb"
	AttrAccessTier       = "access_tier"
)

// AttributeSpec declares one attribute of a resource type
type AttributeSpec struct {
	Key      string
	Kind     Kind
	Required bool
}

var schemas = map[ResourceType][]AttributeSpec{
	ResourceDisk: {
		{Key: AttrState, Kind: KindString, Required: true},
		{Key: AttrSizeGB, Kind: KindNumber, Required: true},
		{Key: AttrSKU, Kind: KindString, Required: true},
		{Key: AttrEncryption, Kind: KindString},
		{Key: AttrBurstingEnabled, Kind: KindBool},
		{Key: AttrZones, Kind: KindList},
		{Key: AttrVMPowerState, Kind: KindString},
		{Key: AttrLastStateChange, Kind: KindTime},
	},
	ResourceSnapshot: {
		{Key: AttrSizeGB, Kind: KindNumber, Required: true},
		{Key: AttrSourceResourceID, Kind: KindString},
		{Key: AttrSourceExists, Kind: KindBool},
		{Key: AttrIncremental, Kind: KindBool},
	},
	ResourceNATGateway: {
		{Key: AttrSubnets, Kind: KindList, Required: true},
		{Key: AttrVirtualNetworkID, Kind: KindString},
		{Key: AttrSKU, Kind: KindString},
	},
	ResourcePublicIP: {
		{Key: AttrSKU, Kind: KindString, Required: true},
		{Key: AttrAssociated, Kind: KindBool, Required: true},
	},
	ResourceVirtualMachine: {
		{Key: AttrVMSize, Kind: KindString, Required: true},
		{Key: AttrPowerState, Kind: KindString, Required: true},
		{Key: AttrLastStateChange, Kind: KindTime},
	},
	ResourceAppServicePlan: {
		{Key: AttrTier, Kind: KindString, Required: true},
		{Key: AttrInstanceCount, Kind: KindNumber, Required: true},
		{Key: AttrSiteCount, Kind: KindNumber, Required: true},
		{Key: AttrZoneRedundant, Kind: KindBool},
	},
	ResourceStorageAccount: {
		{Key: AttrReplication, Kind: KindString, Required: true},
		{Key: AttrUsedCapacityGB, Kind: KindNumber, Required: true},
		{Key: AttrAccessTier, Kind: KindString},
	},
}

// Schema returns the declared attributes for a resource type
func Schema(t ResourceType) []AttributeSpec {
	specs := schemas[t]
	out := make([]AttributeSpec, len(specs))
	copy(out, specs)
	return out
}

// LookupAttribute returns the declaration of key for type t
func LookupAttribute(t ResourceType, key string) (AttributeSpec, bool) {
	for _, s := range schemas[t] {
		if s.Key == key {
			return s, true
		}
	}
	return AttributeSpec{}, false
}

// ValidateAttributes checks attrs against the schema of t. Undeclared keys
// are allowed and kept untouched.
func ValidateAttributes(t ResourceType, attrs Attributes) error {
	specs, ok := schemas[t]
	if !ok {
		return &SchemaError{Type: t, Reason: "unknown resource type"}
	}
	for _, s := range specs {
		v, present := attrs.Get(s.Key)
		if !present {
			if s.Required {
				return &SchemaError{Type: t, Key: s.Key, Reason: "required attribute missing"}
			}
			continue
		}
		if v.Kind() != s.Kind {
			return &SchemaError{
				Type:   t,
				Key:    s.Key,
				Reason: "expected " + s.Kind.String() + ", got " + v.Kind().String(),
			}
		}
		if s.Kind == KindNumber && attrs.GetFloat(s.Key) < 0 {
			return &SchemaError{Type: t, Key: s.Key, Reason: "must not be negative"}
		}
	}
	return nil
}

// SchemaError describes a snapshot that violates its type schema
type SchemaError struct {
	Type   ResourceType
	Key    string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Key == "" {
		return string(e.Type) + ": " + e.Reason
	}
	return string(e.Type) + "." + e.Key + ": " + e.Reason
}
