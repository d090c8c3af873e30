package handlers

import (
	"github.com/spf13/cobra"

	"newslens/internal/learning"
)

// NewLearnCmd creates the adaptive-learning inspection commands.
func NewLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Inspect and exercise the adaptive learning loop",
	}
	cmd.AddCommand(newLearnStatusCmd())
	cmd.AddCommand(newLearnCycleCmd())
	return cmd
}

type learnStatus struct {
	Mode          string              `json:"mode"`
	Thresholds    learning.Thresholds `json:"thresholds"`
	TTLMultiplier map[string]float64  `json:"ttl_multipliers,omitempty"`
}

func newLearnStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the learning mode and current tuned parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			status := learnStatus{
				Mode:          a.cfg.Learning.Mode,
				Thresholds:    a.learning.Tuner.Thresholds(),
				TTLMultiplier: make(map[string]float64),
			}
			for _, src := range a.sources.All() {
				if mul := a.learning.Tuner.TTLMultiplier(src.ID); mul != 1.0 {
					status.TTLMultiplier[src.ID] = mul
				}
			}
			return printJSON(status)
		},
	}
}

func newLearnCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle",
		Short: "Run one pipeline pass and one tuning cycle, then print the result",
		Long: `Runs the pipeline once so the metrics window has observations,
then runs a single tuning cycle over it. In shadow mode the computed
adjustments are logged but not applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.pipeline.Run(cmd.Context(), false); err != nil {
				return err
			}
			a.learning.Tuner.Cycle(cmd.Context())

			status := learnStatus{
				Mode:       a.cfg.Learning.Mode,
				Thresholds: a.learning.Tuner.Thresholds(),
			}
			return printJSON(status)
		},
	}
}
