// Package determinism provides primitives for deterministic scan output.
// Finding identity, content hashing and ordered iteration all go through here.
package determinism

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// findingNamespace roots every finding ID
var findingNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:cloud-waste:finding"))

// IDGenerator generates stable, name-based IDs (UUID v5)
type IDGenerator struct {
	namespace uuid.UUID
}

// NewIDGenerator creates an ID generator scoped under name
func NewIDGenerator(name string) *IDGenerator {
	return &IDGenerator{namespace: uuid.NewSHA1(findingNamespace, []byte(name))}
}

// Generate creates a stable ID from parts. Parts are NUL separated so
// ("ab","c") and ("a","bc") differ.
func (g *IDGenerator) Generate(parts ...string) string {
	return uuid.NewSHA1(g.namespace, []byte(strings.Join(parts, "\x00"))).String()
}

// FindingID identifies a finding by resource, scenario and catalog version.
// It is identical across runs over unchanged inputs.
func FindingID(resourceID, scenarioID, catalogVersion string) string {
	return NewIDGenerator(catalogVersion).Generate(resourceID, scenarioID)
}

// NewRunID returns a random ID for one scan invocation
func NewRunID() string {
	return uuid.NewString()
}

// ContentHash is a SHA-256 hash for content integrity
type ContentHash [32]byte

// ComputeHash computes a content hash from bytes
func ComputeHash(data []byte) ContentHash {
	return sha256.Sum256(data)
}

// Hex returns the hash as a hex string
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters
func (h ContentHash) Short() string {
	return h.Hex()[:12]
}

// SortedKeys returns the keys of m in ascending order
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// RangeMapSorted iterates over a map in sorted key order
func RangeMapSorted[K cmp.Ordered, V any](m map[K]V, fn func(K, V) bool) {
	for _, k := range SortedKeys(m) {
		if !fn(k, m[k]) {
			break
		}
	}
}
