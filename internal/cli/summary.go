package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pantrywisely/pantry/pkg/types"
)

func newSummaryCmd(a *app) *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show pantry counters",
		Long: `Summary counts the pantry items, the items expiring within --window and
the essential items that ran out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repo(cmd.Context(), nil)
			if err != nil {
				return err
			}
			s, err := repo.Summary(cmd.Context(), types.CollectionPantry, a.now(), window)
			if err != nil {
				return storeError("summary", types.CollectionPantry, err)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Items:              %d\nExpiring soon:      %d\nMissing essentials: %d\n",
				s.TotalItems, s.ExpiringSoon, s.MissingEssentials)
			return nil
		},
	}
	cmd.Flags().DurationVar(&window, "window", types.DefaultExpiryWindow, "how far ahead to look for expiring items")
	return cmd
}
