package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete an item",
		Long:  "Delete removes an item. Deleting an item that does not exist succeeds.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, id := args[0], args[1]
			if err := checkCollection(collection); err != nil {
				return err
			}
			path, err := itemPath(collection, id)
			if err != nil {
				return err
			}
			repo, err := a.repo(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if err := repo.Delete(cmd.Context(), path); err != nil {
				return storeError("delete", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", path)
			return nil
		},
	}
}
