package handlers

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the scrape cache maintenance commands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the smart scrape cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [pattern]",
		Short: "Drop cache entries, optionally matching a source pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cache == nil {
				return errors.New("no cache backend configured (redis required)")
			}
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			n, err := a.cache.Invalidate(cmd.Context(), pattern)
			if err != nil {
				return err
			}
			fmt.Printf("cleared %d cache entries\n", n)
			return nil
		},
	}
}
