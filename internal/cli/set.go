package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pantrywisely/pantry/pkg/types"
)

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <collection> <id> <json>",
		Short: "Write an item from JSON",
		Long: `Set writes the item given as a JSON object, replacing the fields of any
item stored under the same id. The id argument wins over an "id" field in
the JSON. Dates may be timestamps or YYYY-MM-DD.

Example:
  pantry set pantry 1 '{"name":"Latte","quantity":1,"unit":"litro","expirationDate":"2025-06-05","isEssential":true}'
  pantry set shopping a1 '{"name":"Uova","quantity":"6","importance":"high"}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, id := args[0], args[1]
			if err := checkCollection(collection); err != nil {
				return err
			}
			path, err := itemPath(collection, id)
			if err != nil {
				return err
			}
			var rec types.Record
			if err := json.Unmarshal([]byte(args[2]), &rec); err != nil {
				return userError("invalid JSON: %w", err)
			}
			if rec == nil {
				return userError("item must be a JSON object")
			}
			rec["id"] = id
			item, err := decodeItem(collection, rec)
			if err != nil {
				return userError("invalid item: %w", err)
			}

			repo, err := a.repo(cmd.Context(), nil)
			if err != nil {
				return err
			}
			if err := repo.Replace(cmd.Context(), path, item); err != nil {
				return storeError("set", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", path)
			return nil
		},
	}
}
