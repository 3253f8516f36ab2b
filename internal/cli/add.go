package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pantrywisely/pantry/pkg/types"
)

type addFlags struct {
	name       string
	quantity   string
	unit       string
	category   string
	expires    string
	essential  bool
	importance string
	completed  bool
}

func newAddCmd(a *app) *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add <collection>",
		Short: "Add a new item with a generated id",
		Long: `Add creates an item with a fresh id and prints the id.

Pantry items take a numeric --quantity and may carry --expires and
--essential. Shopping items take free-text --quantity, --importance and
--completed, and record when they were added.

Example:
  pantry add pantry --name Latte --quantity 1 --unit litro --expires 2025-06-05 --essential
  pantry add shopping --name Uova --quantity 6 --importance high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := args[0]
			if err := checkCollection(collection); err != nil {
				return err
			}
			id, err := uuid.NewV7()
			if err != nil {
				return sysError("generate id: %w", err)
			}
			item, err := f.item(collection, id.String(), a.now())
			if err != nil {
				return err
			}
			if err := item.Validate(); err != nil {
				return userError("invalid item: %w", err)
			}

			repo, err := a.repo(cmd.Context(), nil)
			if err != nil {
				return err
			}
			path, err := itemPath(collection, item.ItemID())
			if err != nil {
				return err
			}
			if err := repo.Put(cmd.Context(), path, item); err != nil {
				return storeError("add", path, err)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), item)
			}
			fmt.Fprintln(cmd.OutOrStdout(), item.ItemID())
			return nil
		},
	}
	cmd.Flags().StringVar(&f.name, "name", "", "item name (required)")
	cmd.Flags().StringVar(&f.quantity, "quantity", "", "quantity; a number for pantry items")
	cmd.Flags().StringVar(&f.unit, "unit", "", "unit of measure")
	cmd.Flags().StringVar(&f.category, "category", "", "category")
	cmd.Flags().StringVar(&f.expires, "expires", "", "expiration date, YYYY-MM-DD (pantry)")
	cmd.Flags().BoolVar(&f.essential, "essential", false, "mark as essential (pantry)")
	cmd.Flags().StringVar(&f.importance, "importance", string(types.ImportanceMedium), "low, medium or high (shopping)")
	cmd.Flags().BoolVar(&f.completed, "completed", false, "mark as already bought (shopping)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// item builds the item kind stored in collection from the flags.
func (f *addFlags) item(collection, id string, now time.Time) (storable, error) {
	if collection == types.CollectionShopping {
		added := now.UTC()
		return types.ShopItem{
			ID:         id,
			Name:       f.name,
			Quantity:   f.quantity,
			Unit:       f.unit,
			Category:   f.category,
			Importance: types.Importance(f.importance),
			Added:      &added,
			Completed:  f.completed,
		}, nil
	}

	it := types.PantryItem{
		ID:          id,
		Name:        f.name,
		Unit:        f.unit,
		Category:    f.category,
		IsEssential: f.essential,
	}
	if f.quantity != "" {
		q, err := strconv.ParseFloat(f.quantity, 64)
		if err != nil {
			return nil, userError("invalid --quantity %q: must be a number", f.quantity)
		}
		it.Quantity = q
	}
	if f.expires != "" {
		exp, err := time.Parse(time.DateOnly, f.expires)
		if err != nil {
			return nil, userError("invalid --expires %q: want YYYY-MM-DD", f.expires)
		}
		it.ExpirationDate = &exp
	}
	return it, nil
}
