package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pantrywisely/pantry/internal/repository"
	"github.com/pantrywisely/pantry/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "List the items of a collection",
		Long: `List prints every item of a collection ordered by id, as a table or, with
--json, as a JSON array.

Example:
  pantry list pantry
  pantry list shopping --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]
			if err := checkCollection(collection); err != nil {
				return err
			}
			repo, err := a.repo(cmd.Context(), nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch collection {
			case types.CollectionPantry:
				items, err := repository.List[types.PantryItem](cmd.Context(), repo, collection)
				if err != nil {
					return storeError("list", collection, err)
				}
				if a.flags.jsonMode {
					return writeJSON(out, items)
				}
				return printPantry(out, items)
			default:
				items, err := repository.List[types.ShopItem](cmd.Context(), repo, collection)
				if err != nil {
					return storeError("list", collection, err)
				}
				if a.flags.jsonMode {
					return writeJSON(out, items)
				}
				return printShopping(out, items)
			}
		},
	}
}

func printPantry(w io.Writer, items []types.PantryItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQUANTITY\tUNIT\tEXPIRES\tESSENTIAL")
	for _, it := range items {
		expires := "-"
		if it.ExpirationDate != nil {
			expires = it.ExpirationDate.UTC().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
			it.ID, it.Name, strconv.FormatFloat(it.Quantity, 'f', -1, 64), it.Unit, expires, it.IsEssential)
	}
	return tw.Flush()
}

func printShopping(w io.Writer, items []types.ShopItem) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQUANTITY\tIMPORTANCE\tDONE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", it.ID, it.Name, it.Quantity, it.Importance, it.Completed)
	}
	return tw.Flush()
}
