package metrics

import (
	"context"
	"sync"
)

// StaticGateway serves queries from in-memory series. Series missing for a
// resource and metric yield an unavailable result.
type StaticGateway struct {
	mu     sync.RWMutex
	series map[string][]Point
}

// NewStaticGateway creates an empty in-memory gateway
func NewStaticGateway() *StaticGateway {
	return &StaticGateway{series: make(map[string][]Point)}
}

func seriesKey(resourceID, metric string) string {
	return resourceID + "|" + metric
}

// Add appends points to the series of resourceID and metric
func (g *StaticGateway) Add(resourceID, metric string, points ...Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := seriesKey(resourceID, metric)
	g.series[k] = append(g.series[k], points...)
}

// Query aggregates the stored series over the query window
func (g *StaticGateway) Query(ctx context.Context, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	g.mu.RLock()
	points, ok := g.series[seriesKey(q.ResourceID, q.MetricName)]
	g.mu.RUnlock()
	if !ok {
		return Unavailable("no series for " + q.MetricName), nil
	}
	return Aggregate(points, q.Window, q.Aggregation), nil
}
