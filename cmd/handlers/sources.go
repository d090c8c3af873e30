package handlers

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewSourcesCmd creates the source inspection and control commands.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect and control the source catalog",
	}
	cmd.AddCommand(newSourcesListCmd())
	cmd.AddCommand(newSourcesEnableCmd(true))
	cmd.AddCommand(newSourcesEnableCmd(false))
	return cmd
}

func newSourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sources with tier, reputation and state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tTIER\tSCORE\tACTIVE\tDISABLED")
			for _, src := range a.sources.All() {
				score := 0.0
				disabled := false
				if rep, ok := a.tracker.Snapshot(src.ID); ok {
					score = rep.ReputationScore
					disabled = rep.AutoDisabled
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%t\t%t\n",
					src.ID, src.Name, src.Type, src.Tier, score, src.Active, disabled)
			}
			return w.Flush()
		},
	}
}

func newSourcesEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <id>", "Re-enable a paused source"
	if !enable {
		use, short = "disable <id>", "Pause a source without removing it"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sources.SetActive(args[0], enable); err != nil {
				return err
			}
			fmt.Printf("source %s active=%t\n", args[0], enable)
			return nil
		},
	}
}
