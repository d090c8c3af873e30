package handlers

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the one-off pipeline run command.
func NewRunCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full pipeline pass and print the run summary",
		Long: `Polls every active source, enriches what survives the quality
gate, recomputes indicators and regenerates company insight bundles.

The smart cache decides per source whether a real fetch happens;
--force bypasses it and refetches everything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.pipeline.Run(cmd.Context(), force)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass the cache and refetch every source")
	return cmd
}
