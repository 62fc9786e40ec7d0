// Package engine provides the API-primary waste scan engine.
// CLI is a thin wrapper around this engine.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/ruleconfig"
	"cloud-waste/core/rules"
	"cloud-waste/core/telemetry"
	"cloud-waste/core/types"
	"cloud-waste/internal/logging"
)

// Collector supplies resource snapshots. It must be restartable and may
// return resources in any order.
type Collector interface {
	Collect(ctx context.Context) ([]*types.Resource, error)
}

// CollectorFunc adapts a function to the Collector interface
type CollectorFunc func(ctx context.Context) ([]*types.Resource, error)

// Collect calls f
func (f CollectorFunc) Collect(ctx context.Context) ([]*types.Resource, error) {
	return f(ctx)
}

// Options tunes a scan
type Options struct {
	// Concurrency bounds resources evaluated in parallel
	Concurrency int

	// ScanTimeout drains the scan gracefully when reached; zero means none
	ScanTimeout time.Duration

	// Retry governs metrics gateway retries
	Retry metrics.RetryPolicy

	// CallTimeout bounds one provider call once it holds quota; zero means none
	CallTimeout time.Duration

	// MaxInFlight caps concurrent gateway calls to the provider quota
	MaxInFlight int

	// RequestsPerSecond caps the gateway call rate; zero means unlimited
	RequestsPerSecond float64

	// SkipMetrics disables metric-based rules for a config-only scan
	SkipMetrics bool

	// ExcludeResourceIDs are never evaluated
	ExcludeResourceIDs []string

	// ExcludeTags excludes resources carrying a tag. An empty value
	// matches any value of the key.
	ExcludeTags map[string]string

	// Now is the scan clock
	Now func() time.Time
}

// DefaultOptions returns the default scan options
func DefaultOptions() Options {
	return Options{
		Concurrency: 8,
		ScanTimeout: 10 * time.Minute,
		Retry:       metrics.DefaultRetryPolicy(),
		CallTimeout: 30 * time.Second,
		MaxInFlight: 16,
		Now:         time.Now,
	}
}

// Config wires an Engine. Zero fields take defaults: the built-in catalog,
// the embedded price table, the global logger and no telemetry. A nil
// Gateway makes every scan config-only.
type Config struct {
	Catalog  *rules.Catalog
	Pricing  *pricing.Model
	Gateway  metrics.Gateway
	Logger   *zap.Logger
	Recorder *telemetry.Recorder
	Options  Options
}

// Engine evaluates the rule catalog over resource snapshots. It holds no
// per-scan state and is safe for concurrent scans.
type Engine struct {
	catalog  *rules.Catalog
	pricing  *pricing.Model
	gateway  metrics.Gateway
	logger   *zap.Logger
	recorder *telemetry.Recorder
	options  Options
}

// New creates an engine
func New(cfg Config) *Engine {
	if cfg.Catalog == nil {
		cfg.Catalog = rules.DefaultCatalog()
	}
	if cfg.Pricing == nil {
		cfg.Pricing = pricing.NewModel(nil)
	}
	opts := cfg.Options
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		catalog:  cfg.Catalog,
		pricing:  cfg.Pricing,
		gateway:  cfg.Gateway,
		logger:   logging.OrDefault(cfg.Logger),
		recorder: cfg.Recorder,
		options:  opts,
	}
}

// Catalog returns the engine's rule catalog
func (e *Engine) Catalog() *rules.Catalog { return e.catalog }

// Result is the outcome of one scan
type Result struct {
	ScanID            string `json:"scan_id"`
	CatalogVersion    string `json:"catalog_version"`
	PriceTableVersion string `json:"price_table_version"`
	PriceTableHash    string `json:"price_table_hash"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Findings are deduplicated and ordered
	Findings []types.Finding `json:"findings"`

	// Skips record rules that could not be evaluated
	Skips []types.Skip `json:"skips"`

	ConfigWarnings []ruleconfig.Warning `json:"config_warnings"`

	ResourcesScanned  int `json:"resources_scanned"`
	ResourcesDropped  int `json:"resources_dropped"`
	ResourcesExcluded int `json:"resources_excluded"`

	// Interrupted is set when cancellation or the scan timeout cut the scan short
	Interrupted bool `json:"interrupted"`
}
