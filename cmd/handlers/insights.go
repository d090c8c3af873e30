package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newslens/internal/core"
	"newslens/internal/indicators"
	"newslens/internal/insights"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewInsightsCmd creates the company insight command.
func NewInsightsCmd() *cobra.Command {
	var (
		companyID string
		refresh   bool
	)

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Print the insight bundle for one company",
		Long: `Prints the cached insight bundle for a company. With --refresh
a full pipeline pass runs first so the bundle reflects the latest
coverage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			profile, err := a.profiles.Get(companyID)
			if err != nil {
				return err
			}

			degraded := false
			if refresh {
				res, err := a.pipeline.Run(cmd.Context(), false)
				if err != nil {
					return err
				}
				degraded = res.Degraded
			}

			if bundle, ok := a.insights.CachedBundle(cmd.Context(), companyID); ok {
				return printJSON(bundle)
			}

			// No cache backend, or the bundle expired: regenerate from
			// the last snapshot.
			snap := a.pipeline.LastSnapshot()
			if snap == nil {
				return fmt.Errorf("no indicator snapshot yet, run with --refresh")
			}
			trends := make(map[string]core.TrendResult)
			for _, value := range snap.Values {
				series := a.series.Series(value.IndicatorID)
				if len(series) >= 3 {
					trends[value.IndicatorID] = indicators.AnalyzeTrend(value.IndicatorID, series, 14, snap.Timestamp)
				}
			}
			bundle, err := a.insights.Generate(cmd.Context(), &profile, &insights.State{
				Snapshot: snap,
				Trends:   trends,
			}, snap.NAI, degraded)
			if err != nil {
				return err
			}
			return printJSON(bundle)
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company profile id")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Run the pipeline before printing")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}
