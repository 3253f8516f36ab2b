package types

// Standard collections. An item lives at "<collection>/<id>".
const (
	CollectionPantry   = "pantry"
	CollectionShopping = "shopping"
)

// StandardCollections lists the collections for enumeration.
var StandardCollections = []string{
	CollectionPantry,
	CollectionShopping,
}
