// Package seed writes the demo pantry and shopping list used by
// "pantry init --seed".
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/pantrywisely/pantry/internal/repository"
	"github.com/pantrywisely/pantry/pkg/types"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// PantryItems returns the demo pantry.
func PantryItems() []types.PantryItem {
	return []types.PantryItem{
		{ID: "1", Name: "Latte", Quantity: 1, Unit: "litro", ExpirationDate: day(2025, time.June, 5), IsEssential: true},
		{ID: "2", Name: "Pane", Quantity: 2, Unit: "pezzi", ExpirationDate: day(2025, time.June, 4), IsEssential: true},
		{ID: "3", Name: "Pomodori", Quantity: 500, Unit: "g", ExpirationDate: day(2025, time.June, 8)},
	}
}

// ShopItems returns the demo shopping list.
func ShopItems() []types.ShopItem {
	return []types.ShopItem{
		{ID: "1", Name: "Uova", Quantity: "6", Importance: types.ImportanceHigh, Added: day(2025, time.June, 2)},
		{ID: "2", Name: "Caffè", Quantity: "1 pacco", Category: "colazione", Importance: types.ImportanceMedium, Added: day(2025, time.June, 2)},
		{ID: "3", Name: "Basilico", Quantity: "1 mazzo", Importance: types.ImportanceLow, Added: day(2025, time.June, 3), Completed: true},
	}
}

// Seed writes the demo items under the pantry and shopping collections,
// replacing any documents with the same ids, and returns how many items read
// back afterwards. Individual write failures are logged by repo; Seed
// reports them as one error once every item has been tried.
func Seed(ctx context.Context, repo *repository.Repository) (int, error) {
	var paths []string
	for _, it := range PantryItems() {
		paths = append(paths, seedItem(ctx, repo, types.CollectionPantry, it))
	}
	n := 0
	for _, p := range paths {
		if repository.Fetch[types.PantryItem](ctx, repo, p) != nil {
			n++
		}
	}

	paths = paths[:0]
	for _, it := range ShopItems() {
		paths = append(paths, seedItem(ctx, repo, types.CollectionShopping, it))
	}
	for _, p := range paths {
		if repository.Fetch[types.ShopItem](ctx, repo, p) != nil {
			n++
		}
	}

	if total := len(PantryItems()) + len(ShopItems()); n < total {
		return n, fmt.Errorf("seeded %d of %d items; see log for failures", n, total)
	}
	return n, nil
}

func seedItem(ctx context.Context, repo *repository.Repository, collection string, it types.Item) string {
	path := collection + "/" + it.ItemID()
	repo.DeleteItem(ctx, path)
	repo.Update(ctx, path, it)
	return path
}
