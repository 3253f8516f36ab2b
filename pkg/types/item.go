package types

import (
	"errors"
	"time"
)

// Importance ranks a shopping-list entry.
type Importance string

// Importance levels.
const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Valid reports whether i is one of the known importance levels.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}

// Item is implemented by every record kind the repository persists.
type Item interface {
	// ItemID returns the identifier assigned by the caller.
	ItemID() string

	// Record returns the domain record: the item's fields keyed by their wire
	// names, with temporal fields as time.Time values.
	Record() Record

	// ReplaceRecord is Record with every unset optional field present as
	// nil, so that merging it into a stored document clears those fields.
	ReplaceRecord() Record
}

// withNulls sets each absent key of r to nil.
func withNulls(r Record, keys ...string) Record {
	for _, k := range keys {
		if _, ok := r[k]; !ok {
			r[k] = nil
		}
	}
	return r
}

// Item validation errors. The codec never validates; these are checked at
// the edges where items are built from user input.
var (
	ErrInvalidID         = errors.New("item id must not be empty")
	ErrInvalidName       = errors.New("item name must not be empty")
	ErrInvalidImportance = errors.New("importance must be low, medium or high")
	ErrInvalidQuantity   = errors.New("quantity must not be negative")
)

// PantryItem is a food item stored at home.
type PantryItem struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Quantity       float64    `json:"quantity"`
	Unit           string     `json:"unit,omitempty"`
	Category       string     `json:"category,omitempty"`
	ExpirationDate *time.Time `json:"expirationDate"` // nil when the item does not expire
	IsEssential    bool       `json:"isEssential"`
}

// ItemID implements Item.
func (p PantryItem) ItemID() string { return p.ID }

// Record implements Item. A nil ExpirationDate is kept as an explicit nil so
// that an update clears a previously stored date.
func (p PantryItem) Record() Record {
	r := Record{
		"id":                p.ID,
		"name":              p.Name,
		"quantity":          p.Quantity,
		FieldExpirationDate: nil,
		"isEssential":       p.IsEssential,
	}
	if p.Unit != "" {
		r["unit"] = p.Unit
	}
	if p.Category != "" {
		r["category"] = p.Category
	}
	if p.ExpirationDate != nil {
		r[FieldExpirationDate] = *p.ExpirationDate
	}
	return r
}

// ReplaceRecord implements Item.
func (p PantryItem) ReplaceRecord() Record {
	return withNulls(p.Record(), "unit", "category", FieldExpirationDate)
}

// Validate checks the fields a pantry item needs before it is stored.
func (p PantryItem) Validate() error {
	if p.ID == "" {
		return ErrInvalidID
	}
	if p.Name == "" {
		return ErrInvalidName
	}
	if p.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// ExpiresWithin reports whether the item expires before now+window. Items
// that already expired count as expiring.
func (p PantryItem) ExpiresWithin(now time.Time, window time.Duration) bool {
	if p.ExpirationDate == nil {
		return false
	}
	return !p.ExpirationDate.After(now.Add(window))
}

// ShopItem is an entry on the shopping list. Quantity is free text such as
// "2 packs".
type ShopItem struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Quantity   string     `json:"quantity"`
	Unit       string     `json:"unit,omitempty"`
	Category   string     `json:"category,omitempty"`
	Importance Importance `json:"importance"`
	Added      *time.Time `json:"added,omitempty"`
	Completed  bool       `json:"completed"`
}

// ItemID implements Item.
func (s ShopItem) ItemID() string { return s.ID }

// Record implements Item. The added field is omitted when unset.
func (s ShopItem) Record() Record {
	r := Record{
		"id":         s.ID,
		"name":       s.Name,
		"quantity":   s.Quantity,
		"importance": string(s.Importance),
		"completed":  s.Completed,
	}
	if s.Unit != "" {
		r["unit"] = s.Unit
	}
	if s.Category != "" {
		r["category"] = s.Category
	}
	if s.Added != nil {
		r[FieldAdded] = *s.Added
	}
	return r
}

// ReplaceRecord implements Item.
func (s ShopItem) ReplaceRecord() Record {
	return withNulls(s.Record(), "unit", "category", FieldAdded)
}

// Validate checks the fields a shopping-list entry needs before it is stored.
func (s ShopItem) Validate() error {
	if s.ID == "" {
		return ErrInvalidID
	}
	if s.Name == "" {
		return ErrInvalidName
	}
	if !s.Importance.Valid() {
		return ErrInvalidImportance
	}
	return nil
}
