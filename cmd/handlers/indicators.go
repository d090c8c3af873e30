package handlers

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"newslens/internal/indicators"
)

// NewIndicatorsCmd creates the indicator catalog commands.
func NewIndicatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Browse the indicator catalog",
	}
	cmd.AddCommand(newIndicatorsListCmd())
	cmd.AddCommand(newIndicatorsShowCmd())
	return cmd
}

func newIndicatorsListCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indicator definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tNAME\tTYPE\tWEIGHT")
			for _, def := range indicators.Catalog() {
				if category != "" && string(def.Category) != category {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n",
					def.ID, def.Category, def.Name, def.CalculationType, def.BaseWeight)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by PESTEL category (political, economic, ...)")
	return cmd
}

func newIndicatorsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one indicator definition in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := indicators.CatalogByID()[args[0]]
			if !ok {
				return fmt.Errorf("unknown indicator %q", args[0])
			}
			return printJSON(def)
		},
	}
}
