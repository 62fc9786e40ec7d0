package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cloud-waste/adapters/inventory"
	"cloud-waste/adapters/monitoring"
	"cloud-waste/adapters/report"
	"cloud-waste/core/dedup"
	"cloud-waste/core/engine"
	"cloud-waste/core/metrics"
	"cloud-waste/core/pricing"
	"cloud-waste/core/ruleconfig"
	"cloud-waste/core/telemetry"
	"cloud-waste/core/types"
	"cloud-waste/internal/config"
	"cloud-waste/internal/logging"
)

// scanFlags holds the scan command flags. Flags that are also config keys
// override the config only when set.
type scanFlags struct {
	inventories   []string
	metricsPath   string
	rulesPath     string
	excludeIDs    []string
	excludeTags   []string
	format        string
	outputPath    string
	minCost       float64
	minConfidence string
	skipMetrics   bool
	concurrency   int
	priceTable    string
	telemetryPath string
}

var scanOpts scanFlags

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a resource inventory for waste",
	Long: `Evaluate the rule catalog over resource snapshots and report findings.

Inventory files are YAML or JSON documents with a "resources" list. Metric
series come from a fixture file; without one only attribute rules run.

Examples:
  cloud-waste scan -i inventory.yaml
  cloud-waste scan -i prod.yaml -i dev.json --metrics metrics.yaml
  cloud-waste scan -i inventory.yaml --rules rules.yaml --exclude-tag keep
  cloud-waste scan -i inventory.yaml --format json -o report.json`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringArrayVarP(&scanOpts.inventories, "inventory", "i", nil, "inventory file (repeatable)")
	f.StringVarP(&scanOpts.metricsPath, "metrics", "m", "", "metrics fixture file")
	f.StringVarP(&scanOpts.rulesPath, "rules", "r", "", "rule overrides document (.yaml or .hcl)")
	f.StringSliceVar(&scanOpts.excludeIDs, "exclude-id", nil, "resource IDs to skip")
	f.StringSliceVar(&scanOpts.excludeTags, "exclude-tag", nil, "skip resources with this tag (key or key=value)")
	f.StringVarP(&scanOpts.format, "format", "f", "", "output format (table, json, markdown)")
	f.StringVarP(&scanOpts.outputPath, "output", "o", "", "write the report to a file instead of stdout")
	f.Float64Var(&scanOpts.minCost, "min-cost", 0, "drop resources whose primary finding costs less per month")
	f.StringVar(&scanOpts.minConfidence, "min-confidence", "", "drop resources whose primary finding grades lower")
	f.BoolVar(&scanOpts.skipMetrics, "skip-metrics", false, "run attribute rules only")
	f.IntVar(&scanOpts.concurrency, "concurrency", 0, "resources evaluated in parallel")
	f.StringVar(&scanOpts.priceTable, "price-table", "", "price table YAML replacing the built-in one")
	f.StringVar(&scanOpts.telemetryPath, "telemetry-file", "", "write scan metrics in Prometheus text format")
	_ = scanCmd.MarkFlagRequired("inventory")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := *config.Get()
	applyScanFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.OrDefault(nil)

	model, err := loadPricing(cfg.Pricing.TablePath)
	if err != nil {
		return err
	}

	var gateway metrics.Gateway
	if scanOpts.metricsPath != "" && !cfg.Engine.SkipMetrics {
		gw, err := monitoring.LoadFile(scanOpts.metricsPath, time.Now())
		if err != nil {
			return err
		}
		gateway = gw
	}

	overrides := loadOverrides(scanOpts.rulesPath, logger)

	var (
		registry *prometheus.Registry
		recorder *telemetry.Recorder
	)
	if scanOpts.telemetryPath != "" {
		registry = prometheus.NewRegistry()
		if recorder, err = telemetry.NewRecorder(registry); err != nil {
			return err
		}
	}

	opts := cfg.Engine.Options()
	opts.ExcludeResourceIDs = scanOpts.excludeIDs
	opts.ExcludeTags = parseExcludeTags(scanOpts.excludeTags)

	eng := engine.New(engine.Config{
		Pricing:  model,
		Gateway:  gateway,
		Logger:   logger,
		Recorder: recorder,
		Options:  opts,
	})

	collector := inventory.NewCollector(logger, scanOpts.inventories...)
	result, err := eng.Scan(ctx, collector, overrides)
	if err != nil {
		return err
	}

	findings, err := filterFindings(result.Findings, cfg.Output)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if scanOpts.outputPath != "" {
		file, err := os.Create(scanOpts.outputPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := writeReport(out, report.Build(result, findings, collector.Rejected()), format); err != nil {
		return err
	}

	if registry != nil {
		if err := prometheus.WriteToTextfile(scanOpts.telemetryPath, registry); err != nil {
			return fmt.Errorf("write telemetry: %w", err)
		}
	}
	return nil
}

func writeReport(w io.Writer, r *report.Report, format report.Format) error {
	if err := report.Write(w, r, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = scanOpts.format
	}
	if flags.Changed("min-cost") {
		cfg.Output.MinMonthlyCost = scanOpts.minCost
	}
	if flags.Changed("min-confidence") {
		cfg.Output.MinConfidence = scanOpts.minConfidence
	}
	if flags.Changed("skip-metrics") {
		cfg.Engine.SkipMetrics = scanOpts.skipMetrics
	}
	if flags.Changed("concurrency") {
		cfg.Engine.Concurrency = scanOpts.concurrency
	}
	if flags.Changed("price-table") {
		cfg.Pricing.TablePath = scanOpts.priceTable
	}
}

func loadPricing(path string) (*pricing.Model, error) {
	if path == "" {
		return pricing.NewModel(nil), nil
	}
	table, err := pricing.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return pricing.NewModel(table), nil
}

// loadOverrides never fails the scan: an unreadable or malformed document
// is reported and the catalog defaults apply.
func loadOverrides(path string, logger *zap.Logger) ruleconfig.Overrides {
	if path == "" {
		return nil
	}
	o, err := ruleconfig.Load(path)
	if err != nil {
		logger.Warn("ignoring rule overrides, using catalog defaults", zap.String("path", path), zap.Error(err))
		return nil
	}
	return o
}

// parseExcludeTags turns "key" and "key=value" into a match map. A bare key
// matches any value.
func parseExcludeTags(specs []string) map[string]string {
	if len(specs) == 0 {
		return nil
	}
	out := make(map[string]string, len(specs))
	for _, s := range specs {
		key, value, _ := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

func filterFindings(findings []types.Finding, out config.OutputConfig) ([]types.Finding, error) {
	if out.MinMonthlyCost > 0 {
		findings = dedup.FilterMinCost(findings, decimal.NewFromFloat(out.MinMonthlyCost))
	}
	if out.MinConfidence != "" {
		threshold, err := types.ParseConfidence(out.MinConfidence)
		if err != nil {
			return nil, err
		}
		findings = dedup.FilterMinConfidence(findings, threshold)
	}
	return findings, nil
}
