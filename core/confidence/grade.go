// Package confidence grades findings from a single numeric signal.
// One routine serves every rule; rules differ only in their breakpoints.
package confidence

import (
	"fmt"
	"math"

	"cloud-waste/core/types"
)

// Direction says which way the signal grows more certain
type Direction string

const (
	// Ascending means a larger signal is more certain (age, idle days)
	Ascending Direction = "ascending"
	// Descending means a smaller signal is more certain (utilization)
	Descending Direction = "descending"
)

// Breakpoints are the thresholds at which a signal reaches each grade.
// Below Medium the grade is low.
type Breakpoints struct {
	Direction Direction `json:"direction" yaml:"direction"`
	Medium    float64   `json:"medium" yaml:"medium"`
	High      float64   `json:"high" yaml:"high"`
	Critical  float64   `json:"critical" yaml:"critical"`
}

// AscendingBreakpoints is shorthand for age-style breakpoints
func AscendingBreakpoints(medium, high, critical float64) Breakpoints {
	return Breakpoints{Direction: Ascending, Medium: medium, High: high, Critical: critical}
}

// DescendingBreakpoints is shorthand for utilization-style breakpoints
func DescendingBreakpoints(medium, high, critical float64) Breakpoints {
	return Breakpoints{Direction: Descending, Medium: medium, High: high, Critical: critical}
}

// Validate checks that thresholds are finite and monotonic in Direction
func (b Breakpoints) Validate() error {
	for _, v := range []float64{b.Medium, b.High, b.Critical} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("breakpoints must be finite")
		}
	}
	switch b.Direction {
	case Ascending:
		if b.Medium > b.High || b.High > b.Critical {
			return fmt.Errorf("ascending breakpoints must satisfy medium <= high <= critical, got %g/%g/%g",
				b.Medium, b.High, b.Critical)
		}
	case Descending:
		if b.Medium < b.High || b.High < b.Critical {
			return fmt.Errorf("descending breakpoints must satisfy medium >= high >= critical, got %g/%g/%g",
				b.Medium, b.High, b.Critical)
		}
	default:
		return fmt.Errorf("unknown direction %q", b.Direction)
	}
	return nil
}

// Grade maps signal onto a grade. A NaN signal grades low.
// For valid breakpoints the result is monotonic in the signal.
func Grade(signal float64, b Breakpoints) types.Confidence {
	if math.IsNaN(signal) {
		return types.ConfidenceLow
	}
	reached := func(threshold float64) bool {
		if b.Direction == Descending {
			return signal <= threshold
		}
		return signal >= threshold
	}
	switch {
	case reached(b.Critical):
		return types.ConfidenceCritical
	case reached(b.High):
		return types.ConfidenceHigh
	case reached(b.Medium):
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}
