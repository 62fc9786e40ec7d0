package types

import (
	"fmt"
	"time"
)

// Resource is a normalized, immutable snapshot of one cloud resource.
// Construct it with NewResource; fields are not meant to be modified.
type Resource struct {
	// ID is opaque and unique within provider+account
	ID string

	// Type is the closed resource type
	Type ResourceType

	// Name is the display name
	Name string

	// Location is the deployment region
	Location string

	// ResourceGroup is the containing group, if any
	ResourceGroup string

	// CreatedAt is the creation timestamp used to derive age
	CreatedAt time.Time

	// Tags are resource tags
	Tags Tags

	// Attributes are typed, schema-checked attributes
	Attributes Attributes
}

// ResourceSpec is the raw input for NewResource
type ResourceSpec struct {
	ID            string
	Type          ResourceType
	Name          string
	Location      string
	ResourceGroup string
	CreatedAt     time.Time
	Tags          map[string]string
	Attributes    []Attribute
}

// NewResource validates spec against the type schema and builds a snapshot
func NewResource(spec ResourceSpec) (*Resource, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("resource id must not be empty")
	}
	if !spec.Type.IsValid() {
		return nil, fmt.Errorf("resource %s: unknown resource type %q", spec.ID, spec.Type)
	}
	if spec.CreatedAt.IsZero() {
		return nil, fmt.Errorf("resource %s: created timestamp is required", spec.ID)
	}

	attrs, err := NewAttributes(spec.Attributes...)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", spec.ID, err)
	}
	if err := ValidateAttributes(spec.Type, attrs); err != nil {
		return nil, fmt.Errorf("resource %s: %w", spec.ID, err)
	}

	return &Resource{
		ID:            spec.ID,
		Type:          spec.Type,
		Name:          spec.Name,
		Location:      spec.Location,
		ResourceGroup: spec.ResourceGroup,
		CreatedAt:     spec.CreatedAt.UTC(),
		Tags:          NewTags(spec.Tags),
		Attributes:    attrs,
	}, nil
}

// AgeDays returns whole days elapsed since creation. Never negative.
func (r *Resource) AgeDays(now time.Time) int {
	return wholeDays(r.CreatedAt, now)
}

// DaysInState returns whole days since the last state change when the
// snapshot records one, otherwise the resource age.
func (r *Resource) DaysInState(now time.Time) int {
	if t := r.Attributes.GetTime(AttrLastStateChange); !t.IsZero() {
		return wholeDays(t, now)
	}
	return r.AgeDays(now)
}

func wholeDays(from, now time.Time) int {
	d := now.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
