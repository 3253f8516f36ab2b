package cli

import (
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print one item as JSON",
		Long: `Get reads one item and prints it as JSON. Dates are shown as timestamps.

Example:
  pantry get pantry 1
  pantry get shopping 7c1e0c52`,
		Args: cobra.ExactArgs(2),
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
			item, err := getItem(cmd.Context(), repo, collection, path)
			if err != nil {
				return storeError("get", path, err)
			}
			return writeJSON(cmd.OutOrStdout(), item)
		},
	}
}
