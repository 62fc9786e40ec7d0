package rules

import (
	"fmt"
	"math"
)

// ParamKind is the declared type of a rule threshold
type ParamKind int

const (
	ParamNumber ParamKind = iota + 1
	ParamInt
	ParamBool
	ParamStrings
)

// String returns the kind name
func (k ParamKind) String() string {
	switch k {
	case ParamNumber:
		return "number"
	case ParamInt:
		return "integer"
	case ParamBool:
		return "bool"
	case ParamStrings:
		return "list of strings"
	default:
		return "unknown"
	}
}

// ParamSpec declares one tunable threshold with its default and sanity range
type ParamSpec struct {
	Name        string
	Kind        ParamKind
	Default     any
	Min         float64
	Max         float64
	Description string
}

// NumberParam declares a float threshold within [min, max]
func NumberParam(name string, def, min, max float64, desc string) ParamSpec {
	return ParamSpec{Name: name, Kind: ParamNumber, Default: def, Min: min, Max: max, Description: desc}
}

// IntParam declares an integer threshold within [min, max]
func IntParam(name string, def, min, max int, desc string) ParamSpec {
	return ParamSpec{Name: name, Kind: ParamInt, Default: def, Min: float64(min), Max: float64(max), Description: desc}
}

// BoolParam declares a boolean switch
func BoolParam(name string, def bool, desc string) ParamSpec {
	return ParamSpec{Name: name, Kind: ParamBool, Default: def, Description: desc}
}

// StringsParam declares a list of strings
func StringsParam(name string, def []string, desc string) ParamSpec {
	return ParamSpec{Name: name, Kind: ParamStrings, Default: def, Description: desc}
}

// Coerce converts a raw document value to the declared kind and checks the
// range. Documents decode integers and floats inconsistently, so any
// numeric Go type is accepted for numeric kinds.
func (p ParamSpec) Coerce(raw any) (any, error) {
	switch p.Kind {
	case ParamNumber, ParamInt:
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("expected %s, got %T", p.Kind, raw)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("value must be finite")
		}
		if p.Kind == ParamInt && f != math.Trunc(f) {
			return nil, fmt.Errorf("expected integer, got %g", f)
		}
		if f < p.Min || f > p.Max {
			return nil, fmt.Errorf("value %g outside range [%g, %g]", f, p.Min, p.Max)
		}
		if p.Kind == ParamInt {
			return int(f), nil
		}
		return f, nil
	case ParamBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil
	case ParamStrings:
		switch v := raw.(type) {
		case []string:
			return append([]string(nil), v...), nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected list of strings, found %T", item)
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected list of strings, got %T", raw)
		}
	default:
		return nil, fmt.Errorf("unknown parameter kind")
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Values holds resolved thresholds for one rule. It is read-only.
type Values struct {
	m map[string]any
}

// DefaultValues returns the declared defaults of specs
func DefaultValues(specs []ParamSpec) Values {
	v := Values{m: make(map[string]any, len(specs))}
	for _, s := range specs {
		v.m[s.Name] = s.Default
	}
	return v
}

// With returns a copy of v with name set to value
func (v Values) With(name string, value any) Values {
	out := Values{m: make(map[string]any, len(v.m)+1)}
	for k, val := range v.m {
		out.m[k] = val
	}
	out.m[name] = value
	return out
}

// Get returns the raw value
func (v Values) Get(name string) (any, bool) {
	val, ok := v.m[name]
	return val, ok
}

// Float returns a numeric threshold
func (v Values) Float(name string) float64 {
	f, _ := toFloat(v.m[name])
	return f
}

// Int returns an integer threshold
func (v Values) Int(name string) int {
	return int(v.Float(name))
}

// Bool returns a boolean threshold
func (v Values) Bool(name string) bool {
	b, _ := v.m[name].(bool)
	return b
}

// Strings returns a list threshold as a copy
func (v Values) Strings(name string) []string {
	s, _ := v.m[name].([]string)
	return append([]string(nil), s...)
}
