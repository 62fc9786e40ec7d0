// Package cmd provides the CLI commands for cloud-waste.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cloud-waste/core/pricing"
	"cloud-waste/core/rules"
	"cloud-waste/internal/config"
	"cloud-waste/internal/logging"
)

// version is set at build time with -ldflags
var version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cloud-waste",
	Short: "Detect wasted cloud spend in resource inventories",
	Long: `cloud-waste evaluates a catalog of waste scenarios over resource snapshots
and reports priced, confidence-graded findings with remediation advice.

Examples:
  cloud-waste scan --inventory inventory.yaml
  cloud-waste scan -i inventory.yaml --metrics metrics.yaml --rules rules.hcl
  cloud-waste scan -i inventory.json --format json --min-cost 10
  cloud-waste rules`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		table := pricing.DefaultTable()
		fmt.Fprintf(cmd.OutOrStdout(), "cloud-waste %s (rule catalog %s, price table %s %s)\n",
			version, rules.CatalogVersion, table.Version, table.Hash().Short())
	},
}
