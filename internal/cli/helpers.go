package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pantrywisely/pantry/internal/codec"
	"github.com/pantrywisely/pantry/internal/docpath"
	"github.com/pantrywisely/pantry/internal/repository"
	"github.com/pantrywisely/pantry/pkg/types"
)

// storable is an item kind the CLI can write.
type storable interface {
	types.Item
	Validate() error
}

var validCollectionsStr = strings.Join(types.StandardCollections, ", ")

func checkCollection(name string) error {
	if !slices.Contains(types.StandardCollections, name) {
		return userError("unknown collection %q (valid: %s)", name, validCollectionsStr)
	}
	return nil
}

// itemPath builds the document path of an item, rejecting ids the stores
// cannot address.
func itemPath(collection, id string) (string, error) {
	p, err := docpath.Join(collection, id)
	if err != nil || docpath.Parent(p) != collection {
		return "", userError("invalid id %q", id)
	}
	return p, nil
}

// decodeItem decodes rec into the item kind stored in collection and
// validates it.
func decodeItem(collection string, rec types.Record) (storable, error) {
	var item storable
	switch collection {
	case types.CollectionPantry:
		var it types.PantryItem
		if err := codec.Decode(rec, &it); err != nil {
			return nil, err
		}
		item = it
	case types.CollectionShopping:
		var it types.ShopItem
		if err := codec.Decode(rec, &it); err != nil {
			return nil, err
		}
		item = it
	default:
		return nil, checkCollection(collection)
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// getItem reads the item at path, of the kind stored in collection.
func getItem(ctx context.Context, repo *repository.Repository, collection, path string) (any, error) {
	switch collection {
	case types.CollectionPantry:
		var it types.PantryItem
		err := repo.Get(ctx, path, &it)
		return it, err
	case types.CollectionShopping:
		var it types.ShopItem
		err := repo.Get(ctx, path, &it)
		return it, err
	}
	return nil, checkCollection(collection)
}

// storeError maps a repository error to an exit code.
func storeError(action, path string, err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return userError("%s %s: not found", action, path)
	case errors.Is(err, types.ErrInvalidPath):
		return userError("%s %s: %w", action, path, err)
	}
	return sysError("%s %s: %w", action, path, err)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
