package rules

import (
	"sort"

	"cloud-waste/core/types"
)

// Grouping declares the key counting rules group sibling resources by.
// Resources with an empty key are not grouped.
type Grouping struct {
	Name string
	Key  func(r *types.Resource) string
}

// GroupByAttribute groups by a string attribute
func GroupByAttribute(attr string) *Grouping {
	return &Grouping{
		Name: attr,
		Key:  func(r *types.Resource) string { return r.Attributes.GetString(attr) },
	}
}

// GroupByTag groups by a tag value
func GroupByTag(tag string) *Grouping {
	return &Grouping{
		Name: "tag:" + tag,
		Key: func(r *types.Resource) string {
			v, _ := r.Tags.Get(tag)
			return v
		},
	}
}

// Group is the ranked set of resources sharing one grouping key
type Group struct {
	Key     string
	Members []*types.Resource
	rank    map[string]int
}

// NewGroup ranks members newest first, ties broken by ID ascending
func NewGroup(key string, members []*types.Resource) *Group {
	sorted := append([]*types.Resource(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	g := &Group{Key: key, Members: sorted, rank: make(map[string]int, len(sorted))}
	for i, m := range sorted {
		g.rank[m.ID] = i
	}
	return g
}

// Rank returns the zero-based position of id, or -1 when absent
func (g *Group) Rank(id string) int {
	if r, ok := g.rank[id]; ok {
		return r
	}
	return -1
}

// Size returns the number of members
func (g *Group) Size() int {
	return len(g.Members)
}
