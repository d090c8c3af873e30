// Package cmd assembles the root command from the handlers package.
package cmd

import (
	"github.com/spf13/cobra"

	"newslens/cmd/handlers"
)

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newslens",
		Short: "Multi-layer news intelligence for Sri Lankan market signals",
		Long: `Newslens ingests national news sources, deduplicates and
cross-validates coverage, aggregates it into PESTEL indicators and
turns the indicator state into company-specific risk and opportunity
insights.

Core workflows:
  • One-off pass: scrape, enrich, aggregate and generate in one run
  • Service mode: scheduled runs plus the HTTP read API

Examples:
  # Run one full pipeline pass
  newslens run

  # Start the service with the read API on :8080
  newslens serve

  # Inspect configured sources and their reputation
  newslens sources list`,
		Version:       handlers.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	handlers.BindConfigFlag(rootCmd.PersistentFlags())

	rootCmd.AddCommand(handlers.NewRunCmd())
	rootCmd.AddCommand(handlers.NewServeCmd())
	rootCmd.AddCommand(handlers.NewSourcesCmd())
	rootCmd.AddCommand(handlers.NewIndicatorsCmd())
	rootCmd.AddCommand(handlers.NewInsightsCmd())
	rootCmd.AddCommand(handlers.NewCacheCmd())
	rootCmd.AddCommand(handlers.NewLearnCmd())
	rootCmd.AddCommand(handlers.NewMigrateCmd())
	return rootCmd
}
