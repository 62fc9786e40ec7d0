package types

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind is the declared type of an attribute value
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
	KindList
	KindTime
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Value is a typed attribute value. The zero Value has no kind.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
	t    time.Time
}

// StringValue creates a string value
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue creates a number value
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// BoolValue creates a boolean value
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ListValue creates a list of strings value. The slice is copied.
func ListValue(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// TimeValue creates a timestamp value, normalized to UTC
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// Kind returns the value kind
func (v Value) Kind() Kind { return v.kind }

// String renders the value for display and metadata
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindList:
		return strings.Join(v.list, ",")
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// Attribute is a single key/value pair
type Attribute struct {
	Key   string
	Value Value
}

// Attributes is an ordered, read-only mapping of attribute keys to typed
// values. Keys are unique.
type Attributes struct {
	keys   []string
	values map[string]Value
}

// NewAttributes builds an ordered mapping, rejecting duplicate keys.
func NewAttributes(pairs ...Attribute) (Attributes, error) {
	a := Attributes{
		keys:   make([]string, 0, len(pairs)),
		values: make(map[string]Value, len(pairs)),
	}
	for _, p := range pairs {
		if p.Key == "" {
			return Attributes{}, fmt.Errorf("attribute key must not be empty")
		}
		if _, dup := a.values[p.Key]; dup {
			return Attributes{}, fmt.Errorf("duplicate attribute %q", p.Key)
		}
		if p.Value.kind == KindNumber && (math.IsNaN(p.Value.num) || math.IsInf(p.Value.num, 0)) {
			return Attributes{}, fmt.Errorf("attribute %q is not a finite number", p.Key)
		}
		a.keys = append(a.keys, p.Key)
		a.values[p.Key] = p.Value
	}
	return a, nil
}

// Len returns the number of attributes
func (a Attributes) Len() int { return len(a.keys) }

// Keys returns the attribute keys in insertion order
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Get retrieves a value
func (a Attributes) Get(key string) (Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether the key is present
func (a Attributes) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// GetString retrieves a string attribute value
func (a Attributes) GetString(key string) string {
	if v, ok := a.values[key]; ok && v.kind == KindString {
		return v.str
	}
	return ""
}

// GetFloat retrieves a number attribute value
func (a Attributes) GetFloat(key string) float64 {
	if v, ok := a.values[key]; ok && v.kind == KindNumber {
		return v.num
	}
	return 0
}

// GetInt retrieves a number attribute value truncated to int
func (a Attributes) GetInt(key string) int {
	return int(a.GetFloat(key))
}

// GetBool retrieves a boolean attribute value
func (a Attributes) GetBool(key string) bool {
	if v, ok := a.values[key]; ok && v.kind == KindBool {
		return v.b
	}
	return false
}

// GetList retrieves a list attribute value as a copy
func (a Attributes) GetList(key string) []string {
	if v, ok := a.values[key]; ok && v.kind == KindList {
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	return nil
}

// GetTime retrieves a timestamp attribute value
func (a Attributes) GetTime(key string) time.Time {
	if v, ok := a.values[key]; ok && v.kind == KindTime {
		return v.t
	}
	return time.Time{}
}

// Tags is a read-only tag set. Lookups are case-insensitive on the key.
type Tags struct {
	m map[string]string
}

// NewTags copies m into a Tags value
func NewTags(m map[string]string) Tags {
	t := Tags{m: make(map[string]string, len(m))}
	for k, v := range m {
		t.m[strings.ToLower(k)] = v
	}
	return t
}

// Get returns the tag value for key
func (t Tags) Get(key string) (string, bool) {
	v, ok := t.m[strings.ToLower(key)]
	return v, ok
}

// Len returns the number of tags
func (t Tags) Len() int { return len(t.m) }

// Keys returns the lower-cased tag keys, sorted
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t.m))
	for k := range t.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
