package metrics

import (
	"fmt"
	"math"
	"sort"
)

// Aggregate reduces points inside w with agg. Points outside the window are
// ignored; no remaining points yields an unavailable result.
func Aggregate(points []Point, w Window, agg Aggregation) Result {
	in := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Timestamp.Before(w.Start) || !p.Timestamp.Before(w.End) {
			continue
		}
		if math.IsNaN(p.Value) {
			continue
		}
		in = append(in, p)
	}
	if len(in) == 0 {
		return Unavailable("no samples in window")
	}
	sort.SliceStable(in, func(i, j int) bool { return in[i].Timestamp.Before(in[j].Timestamp) })

	var v float64
	switch agg {
	case Average:
		v = mean(in)
	case Total:
		for _, p := range in {
			v += p.Value
		}
	case Maximum:
		v = in[0].Value
		for _, p := range in[1:] {
			v = math.Max(v, p.Value)
		}
	case StdDev:
		m := mean(in)
		var sq float64
		for _, p := range in {
			sq += (p.Value - m) * (p.Value - m)
		}
		v = math.Sqrt(sq / float64(len(in)))
	default:
		return Unavailable(fmt.Sprintf("unsupported aggregation %q", agg))
	}

	return Result{Value: v, Series: in, SampleCount: len(in)}
}

func mean(points []Point) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}
