// Package types defines core domain types shared across all layers.
// This package contains NO detection logic - only type definitions and
// snapshot validation.
package types

import "fmt"

// ResourceType is the closed set of resource kinds the engine understands
type ResourceType string

const (
	ResourceDisk           ResourceType = "disk"
	ResourceSnapshot       ResourceType = "snapshot"
	ResourceNATGateway     ResourceType = "nat_gateway"
	ResourcePublicIP       ResourceType = "public_ip"
	ResourceVirtualMachine ResourceType = "virtual_machine"
	ResourceAppServicePlan ResourceType = "app_service_plan"
	ResourceStorageAccount ResourceType = "storage_account"
)

// AllResourceTypes lists every known resource type in a stable order.
func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceDisk,
		ResourceSnapshot,
		ResourceNATGateway,
		ResourcePublicIP,
		ResourceVirtualMachine,
		ResourceAppServicePlan,
		ResourceStorageAccount,
	}
}

// String returns the string representation
func (t ResourceType) String() string {
	return string(t)
}

// IsValid checks if the type is part of the closed enum
func (t ResourceType) IsValid() bool {
	_, ok := schemas[t]
	return ok
}

// ParseResourceType converts a string to a ResourceType
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown resource type %q", s)
	}
	return t, nil
}

// Category groups scenarios by what kind of signal they act on. It also
// decides priority between co-occurring findings on one resource.
type Category string

const (
	// CategoryState covers unattached, stopped, empty and orphaned resources
	CategoryState Category = "state"
	// CategoryUtilization covers idle, oversized and redundant resources
	CategoryUtilization Category = "utilization"
	// CategoryHygiene covers encryption, replication and tier mismatches
	CategoryHygiene Category = "hygiene"
)

// Priority returns the dedup priority; higher wins.
func (c Category) Priority() int {
	switch c {
	case CategoryState:
		return 3
	case CategoryUtilization:
		return 2
	case CategoryHygiene:
		return 1
	default:
		return 0
	}
}

// Confidence is the ordinal grade attached to a finding
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceCritical Confidence = "critical"
)

// Rank returns the ordinal position of the grade (low=1 .. critical=4).
// Unknown grades rank 0.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	case ConfidenceCritical:
		return 4
	default:
		return 0
	}
}

// IsValid reports whether c is one of the four grades
func (c Confidence) IsValid() bool {
	return c.Rank() > 0
}

// ParseConfidence converts a string to a Confidence grade
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown confidence grade %q", s)
	}
	return c, nil
}
