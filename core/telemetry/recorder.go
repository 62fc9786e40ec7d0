// Package telemetry exposes scan instrumentation as Prometheus collectors.
// A nil *Recorder is valid and records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"cloud-waste/core/metrics"
	"cloud-waste/core/types"
)

const namespace = "cloudwaste"

// Resource statuses counted per scan
const (
	StatusScanned  = "scanned"
	StatusDropped  = "dropped"
	StatusExcluded = "excluded"
)

// Recorder holds the scan collectors
type Recorder struct {
	findings       *prometheus.CounterVec
	skips          *prometheus.CounterVec
	gatewayCalls   *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	resources      *prometheus.CounterVec
	configWarnings prometheus.Counter
	evalDuration   prometheus.Histogram
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings emitted, by scenario and confidence.",
		}, []string{"scenario_id", "confidence"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_skips_total",
			Help:      "Rules that could not be evaluated, by kind.",
		}, []string{"kind"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_gateway_calls_total",
			Help:      "Metrics gateway call attempts, by outcome.",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_cache_lookups_total",
			Help:      "Per-scan metrics cache lookups, by result.",
		}, []string{"result"}),
		resources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_total",
			Help:      "Resources seen by scans, by status.",
		}, []string{"status"}),
		configWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_warnings_total",
			Help:      "Rule configuration overrides rejected in favor of defaults.",
		}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resource_evaluation_seconds",
			Help:      "Time spent evaluating all rules for one resource.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			r.findings, r.skips, r.gatewayCalls, r.cacheLookups,
			r.resources, r.configWarnings, r.evalDuration,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// GatewayCall implements metrics.Observer
func (r *Recorder) GatewayCall(outcome metrics.Outcome) {
	if r == nil {
		return
	}
	r.gatewayCalls.WithLabelValues(string(outcome)).Inc()
}

// CacheLookup implements metrics.Observer
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// Finding counts one emitted finding
func (r *Recorder) Finding(f types.Finding) {
	if r == nil {
		return
	}
	r.findings.WithLabelValues(f.ScenarioID, string(f.Confidence)).Inc()
}

// Skip counts one skip record
func (r *Recorder) Skip(kind types.SkipKind) {
	if r == nil {
		return
	}
	r.skips.WithLabelValues(string(kind)).Inc()
}

// Resources adds n resources with the given status
func (r *Recorder) Resources(status string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.resources.WithLabelValues(status).Add(float64(n))
}

// ConfigWarnings adds n rejected overrides
func (r *Recorder) ConfigWarnings(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.configWarnings.Add(float64(n))
}

// ObserveEvaluation records the time spent on one resource
func (r *Recorder) ObserveEvaluation(d time.Duration) {
	if r == nil {
		return
	}
	r.evalDuration.Observe(d.Seconds())
}
