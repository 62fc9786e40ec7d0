package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

func diskSpec(attrs ...Attribute) ResourceSpec {
	return ResourceSpec{
		ID:         "/subscriptions/s/disks/d1",
		Type:       ResourceDisk,
		Name:       "d1",
		CreatedAt:  created,
		Tags:       map[string]string{"Environment": "dev"},
		Attributes: attrs,
	}
}

func TestNewResource(t *testing.T) {
	valid := []Attribute{
		{Key: AttrState, Value: StringValue("Unattached")},
		{Key: AttrSizeGB, Value: NumberValue(128)},
		{Key: AttrSKU, Value: StringValue("Premium_LRS")},
	}

	tests := []struct {
		name    string
		spec    ResourceSpec
		wantErr string
	}{
		{name: "valid disk", spec: diskSpec(valid...)},
		{
			name:    "missing required attribute",
			spec:    diskSpec(valid[:2]...),
			wantErr: "disk.sku: required attribute missing",
		},
		{
			name: "wrong kind",
			spec: diskSpec(
				Attribute{Key: AttrState, Value: StringValue("Unattached")},
				Attribute{Key: AttrSizeGB, Value: StringValue("128")},
				Attribute{Key: AttrSKU, Value: StringValue("Premium_LRS")},
			),
			wantErr: "expected number, got string",
		},
		{
			name:    "duplicate key",
			spec:    diskSpec(append(valid, Attribute{Key: AttrSKU, Value: StringValue("Standard_LRS")})...),
			wantErr: `duplicate attribute "sku"`,
		},
		{
			name: "negative size",
			spec: diskSpec(
				Attribute{Key: AttrState, Value: StringValue("Unattached")},
				Attribute{Key: AttrSizeGB, Value: NumberValue(-1)},
				Attribute{Key: AttrSKU, Value: StringValue("Premium_LRS")},
			),
			wantErr: "must not be negative",
		},
		{
			name:    "unknown type",
			spec:    ResourceSpec{ID: "x", Type: "bucket", CreatedAt: created},
			wantErr: "unknown resource type",
		},
		{
			name:    "missing id",
			spec:    ResourceSpec{Type: ResourceDisk, CreatedAt: created},
			wantErr: "resource id must not be empty",
		},
		{
			name:    "missing created timestamp",
			spec:    ResourceSpec{ID: "x", Type: ResourcePublicIP},
			wantErr: "created timestamp is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResource(tt.spec)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 128.0, r.Attributes.GetFloat(AttrSizeGB))
			assert.Equal(t, []string{AttrState, AttrSizeGB, AttrSKU}, r.Attributes.Keys())
		})
	}
}

func TestUndeclaredAttributesAreKept(t *testing.T) {
	r, err := NewResource(ResourceSpec{
		ID:        "ip1",
		Type:      ResourcePublicIP,
		CreatedAt: created,
		Attributes: []Attribute{
			{Key: AttrSKU, Value: StringValue("Standard")},
			{Key: AttrAssociated, Value: BoolValue(false)},
			{Key: "dns_label", Value: StringValue("api")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "api", r.Attributes.GetString("dns_label"))
}

func TestAgeAndDaysInState(t *testing.T) {
	now := created.Add(45*24*time.Hour + 3*time.Hour)
	r, err := NewResource(diskSpec(
		Attribute{Key: AttrState, Value: StringValue("Unattached")},
		Attribute{Key: AttrSizeGB, Value: NumberValue(128)},
		Attribute{Key: AttrSKU, Value: StringValue("Premium_LRS")},
	))
	require.NoError(t, err)
	assert.Equal(t, 45, r.AgeDays(now))
	assert.Equal(t, 45, r.DaysInState(now))
	assert.Equal(t, 0, r.AgeDays(created.Add(-time.Hour)))

	changed, err := NewResource(diskSpec(
		Attribute{Key: AttrState, Value: StringValue("Unattached")},
		Attribute{Key: AttrSizeGB, Value: NumberValue(128)},
		Attribute{Key: AttrSKU, Value: StringValue("Premium_LRS")},
		Attribute{Key: AttrLastStateChange, Value: TimeValue(now.Add(-10 * 24 * time.Hour))},
	))
	require.NoError(t, err)
	assert.Equal(t, 10, changed.DaysInState(now))
}

func TestAccessorsReturnCopies(t *testing.T) {
	attrs, err := NewAttributes(Attribute{Key: AttrSubnets, Value: ListValue("a", "b")})
	require.NoError(t, err)

	list := attrs.GetList(AttrSubnets)
	list[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, attrs.GetList(AttrSubnets))

	keys := attrs.Keys()
	keys[0] = "mutated"
	assert.True(t, attrs.Has(AttrSubnets))
}

func TestTagsCaseInsensitive(t *testing.T) {
	tags := NewTags(map[string]string{"Environment": "Dev", "Owner": "ops"})
	v, ok := tags.Get("environment")
	assert.True(t, ok)
	assert.Equal(t, "Dev", v)
	assert.Equal(t, []string{"environment", "owner"}, tags.Keys())
}

func TestConfidenceAndCategoryOrdering(t *testing.T) {
	assert.Less(t, ConfidenceLow.Rank(), ConfidenceMedium.Rank())
	assert.Less(t, ConfidenceMedium.Rank(), ConfidenceHigh.Rank())
	assert.Less(t, ConfidenceHigh.Rank(), ConfidenceCritical.Rank())
	assert.False(t, Confidence("sure").IsValid())

	assert.Greater(t, CategoryState.Priority(), CategoryUtilization.Priority())
	assert.Greater(t, CategoryUtilization.Priority(), CategoryHygiene.Priority())

	_, err := ParseResourceType("disk")
	assert.NoError(t, err)
	_, err = ParseResourceType("bucket")
	assert.Error(t, err)
}
