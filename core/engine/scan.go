package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cloud-waste/core/dedup"
	"cloud-waste/core/determinism"
	"cloud-waste/core/metrics"
	"cloud-waste/core/ruleconfig"
	"cloud-waste/core/rules"
	"cloud-waste/core/telemetry"
	"cloud-waste/core/types"
	"cloud-waste/internal/errors"
)

// Scan collects resources and runs a scan over them. A collector failure is
// the only fatal error.
func (e *Engine) Scan(ctx context.Context, c Collector, overrides ruleconfig.Overrides) (*Result, error) {
	resources, err := c.Collect(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInput, "collect resources", err)
	}
	return e.RunScan(ctx, resources, overrides)
}

// scanState is the per-scan shared state. The metrics cache is the only
// mutable structure shared between workers.
type scanState struct {
	now       time.Time
	effective *ruleconfig.Effective
	groups    groupIndex
	gateway   metrics.Gateway
}

// RunScan evaluates the catalog over resources. Rule, metrics and
// configuration failures never fail the scan; they surface as skips and
// warnings on the Result.
func (e *Engine) RunScan(ctx context.Context, resources []*types.Resource, overrides ruleconfig.Overrides) (*Result, error) {
	started := time.Now()
	now := e.options.Now().UTC()

	result := &Result{
		ScanID:            determinism.NewRunID(),
		CatalogVersion:    e.catalog.Version(),
		PriceTableVersion: e.pricing.Version(),
		PriceTableHash:    e.pricing.Table().Hash().Hex(),
		StartedAt:         started.UTC(),
	}
	logger := e.logger.With(zap.String("scan_id", result.ScanID))

	effective := ruleconfig.Resolve(e.catalog, overrides, logger)
	result.ConfigWarnings = effective.Warnings
	e.recorder.ConfigWarnings(len(effective.Warnings))

	selected, excluded := e.selectResources(resources, logger)
	result.ResourcesExcluded = excluded

	state := &scanState{
		now:       now,
		effective: effective,
		groups:    buildGroupIndex(e.catalog, selected),
		gateway:   e.scanGateway(logger),
	}

	if e.options.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.options.ScanTimeout)
		defer cancel()
	}

	logger.Info("scan started",
		zap.Int("resources", len(selected)),
		zap.Int("excluded", excluded),
		zap.Int("rules", e.catalog.Len()),
		zap.Bool("metrics", state.gateway != nil))

	var (
		mu       sync.Mutex
		findings []types.Finding
	)
	g := new(errgroup.Group)
	g.SetLimit(e.options.Concurrency)

	for _, res := range selected {
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				result.ResourcesDropped++
				result.Skips = append(result.Skips, cancelledSkip(res.ID))
				mu.Unlock()
				return nil
			}

			evalStart := time.Now()
			out := e.evaluateResource(ctx, res, state, logger)
			e.recorder.ObserveEvaluation(time.Since(evalStart))

			mu.Lock()
			defer mu.Unlock()
			if out.dropped {
				result.ResourcesDropped++
				result.Skips = append(result.Skips, cancelledSkip(res.ID))
				return nil
			}
			result.ResourcesScanned++
			findings = append(findings, out.findings...)
			result.Skips = append(result.Skips, out.skips...)
			return nil
		})
	}
	_ = g.Wait()

	result.Interrupted = ctx.Err() != nil
	result.Findings = dedup.Batch(findings)
	sortSkips(result.Skips)
	result.Duration = time.Since(started)

	for _, f := range result.Findings {
		e.recorder.Finding(f)
	}
	for _, s := range result.Skips {
		e.recorder.Skip(s.Kind)
	}
	e.recorder.Resources(telemetry.StatusScanned, result.ResourcesScanned)
	e.recorder.Resources(telemetry.StatusDropped, result.ResourcesDropped)
	e.recorder.Resources(telemetry.StatusExcluded, result.ResourcesExcluded)

	fields := []zap.Field{
		zap.Int("findings", len(result.Findings)),
		zap.Int("skips", len(result.Skips)),
		zap.Int("scanned", result.ResourcesScanned),
		zap.Int("dropped", result.ResourcesDropped),
		zap.Duration("duration", result.Duration),
	}
	if result.Interrupted {
		logger.Warn("scan interrupted, partial results kept", fields...)
	} else {
		logger.Info("scan complete", fields...)
	}
	return result, nil
}

// scanGateway builds the per-scan decorator stack:
// cache -> retry/backoff -> quota limits -> call timeout -> provider gateway.
func (e *Engine) scanGateway(logger *zap.Logger) metrics.Gateway {
	if e.gateway == nil || e.options.SkipMetrics {
		return nil
	}
	timed := metrics.WithCallTimeout(e.gateway, e.options.CallTimeout)
	limited := metrics.WithLimits(timed, e.options.MaxInFlight, e.options.RequestsPerSecond)
	retried := metrics.WithRetry(limited, e.options.Retry, logger, e.recorder)
	return metrics.NewCache(retried, e.recorder)
}

// selectResources drops nil and duplicate snapshots and applies exclusions
func (e *Engine) selectResources(resources []*types.Resource, logger *zap.Logger) ([]*types.Resource, int) {
	excludeIDs := make(map[string]bool, len(e.options.ExcludeResourceIDs))
	for _, id := range e.options.ExcludeResourceIDs {
		excludeIDs[id] = true
	}

	seen := make(map[string]bool, len(resources))
	selected := make([]*types.Resource, 0, len(resources))
	excluded := 0
	for _, r := range resources {
		if r == nil {
			continue
		}
		if seen[r.ID] {
			logger.Warn("duplicate resource id in scan input, keeping first", zap.String("resource_id", r.ID))
			continue
		}
		seen[r.ID] = true
		if excludeIDs[r.ID] || matchesExcludedTag(r, e.options.ExcludeTags) {
			logger.Debug("resource excluded", zap.String("resource_id", r.ID))
			excluded++
			continue
		}
		selected = append(selected, r)
	}
	return selected, excluded
}

func matchesExcludedTag(r *types.Resource, exclude map[string]string) bool {
	for k, v := range exclude {
		actual, ok := r.Tags.Get(k)
		if !ok {
			continue
		}
		if v == "" || actual == v {
			return true
		}
	}
	return false
}

// groupIndex maps scenario ID -> grouping key -> ranked group
type groupIndex map[string]map[string]*rules.Group

// buildGroupIndex groups the whole scan input for every counting rule
func buildGroupIndex(c *rules.Catalog, resources []*types.Resource) groupIndex {
	idx := groupIndex{}
	for _, rule := range c.Rules() {
		if rule.GroupBy == nil {
			continue
		}
		members := map[string][]*types.Resource{}
		for _, r := range resources {
			if !rule.Applies(r.Type) {
				continue
			}
			if key := rule.GroupBy.Key(r); key != "" {
				members[key] = append(members[key], r)
			}
		}
		groups := make(map[string]*rules.Group, len(members))
		for key, ms := range members {
			groups[key] = rules.NewGroup(key, ms)
		}
		idx[rule.ScenarioID] = groups
	}
	return idx
}

func (idx groupIndex) lookup(rule *rules.Rule, r *types.Resource) *rules.Group {
	if rule.GroupBy == nil {
		return nil
	}
	key := rule.GroupBy.Key(r)
	if key == "" {
		return nil
	}
	return idx[rule.ScenarioID][key]
}

func cancelledSkip(resourceID string) types.Skip {
	return types.Skip{
		ResourceID: resourceID,
		Kind:       types.SkipCancelled,
		Reason:     "scan cancelled before evaluation completed",
	}
}

func sortSkips(skips []types.Skip) {
	sort.Slice(skips, func(i, j int) bool {
		a, b := skips[i], skips[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.ScenarioID != b.ScenarioID {
			return a.ScenarioID < b.ScenarioID
		}
		return a.Kind < b.Kind
	})
}
