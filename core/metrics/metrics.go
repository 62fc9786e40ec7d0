// Package metrics defines the consumed Metrics Gateway interface and the
// decorators the engine stacks on top of it: retry with backoff, request
// limits and a per-scan memoization cache.
package metrics

import (
	"context"
	"fmt"
	"time"
)

// Aggregation is how a series is reduced to a scalar
type Aggregation string

const (
	Average Aggregation = "average"
	Total   Aggregation = "total"
	Maximum Aggregation = "max"
	StdDev  Aggregation = "stddev"
)

// Metric names understood by the catalog
const (
	DiskIOPSConsumedPercentage = "disk_iops_consumed_percentage"
	CPUPercentage              = "cpu_percentage"
	NATBytesTotal              = "nat_bytes_total"
	InstanceCount              = "instance_count"
)

// Window is the time range and sampling interval of a query
type Window struct {
	Start       time.Time
	End         time.Time
	Granularity time.Duration
}

// LookbackWindow returns a window of days ending at now, sampled hourly
func LookbackWindow(now time.Time, days int) Window {
	end := now.UTC().Truncate(time.Hour)
	return Window{
		Start:       end.Add(-time.Duration(days) * 24 * time.Hour),
		End:         end,
		Granularity: time.Hour,
	}
}

// Query asks for one aggregated metric of one resource
type Query struct {
	ResourceID  string
	MetricName  string
	Aggregation Aggregation
	Window      Window
}

// Key is the memoization key of the query
func (q Query) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d",
		q.ResourceID, q.MetricName, q.Aggregation,
		q.Window.Start.Unix(), q.Window.End.Unix(), int64(q.Window.Granularity/time.Second))
}

// Point is one sample of a series
type Point struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Value     float64   `json:"value" yaml:"value"`
}

// Result is the answer to a Query. Unavailable is distinct from a zero Value.
type Result struct {
	Value       float64
	Series      []Point
	SampleCount int
	Unavailable bool
	Reason      string
}

// Unavailable builds an unavailable result
func Unavailable(reason string) Result {
	return Result{Unavailable: true, Reason: reason}
}

// Normalize marks a result with no samples as unavailable
func (r Result) Normalize() Result {
	if !r.Unavailable && r.SampleCount == 0 {
		return Unavailable("no samples in window")
	}
	return r
}

// Gateway answers metric queries. Implementations must honor ctx.
type Gateway interface {
	Query(ctx context.Context, q Query) (Result, error)
}

// GatewayFunc adapts a function to the Gateway interface
type GatewayFunc func(ctx context.Context, q Query) (Result, error)

// Query calls f
func (f GatewayFunc) Query(ctx context.Context, q Query) (Result, error) {
	return f(ctx, q)
}

// Outcome classifies a completed gateway call for observers
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeRetried     Outcome = "retried"
	OutcomeExhausted   Outcome = "exhausted"
	OutcomeCancelled   Outcome = "cancelled"
)

// Observer receives gateway and cache events. Implementations must be
// safe for concurrent use.
type Observer interface {
	GatewayCall(outcome Outcome)
	CacheLookup(hit bool)
}

type nopObserver struct{}

func (nopObserver) GatewayCall(Outcome) {}
func (nopObserver) CacheLookup(bool)    {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
