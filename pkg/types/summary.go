package types

import "time"

// DefaultExpiryWindow is how far ahead Summarize looks for expiring items.
const DefaultExpiryWindow = 3 * 24 * time.Hour

// PantrySummary holds the counters shown on the pantry overview. It is
// derived from the stored items and never persisted.
type PantrySummary struct {
	TotalItems        int `json:"totalItems"`
	ExpiringSoon      int `json:"expiringSoon"`
	MissingEssentials int `json:"missingEssentials"`
}

// Summarize counts items, items expiring within window of now, and essential
// items that ran out. A non-positive window uses DefaultExpiryWindow.
func Summarize(items []PantryItem, now time.Time, window time.Duration) PantrySummary {
	if window <= 0 {
		window = DefaultExpiryWindow
	}
	s := PantrySummary{TotalItems: len(items)}
	for _, it := range items {
		if it.ExpiresWithin(now, window) {
			s.ExpiringSoon++
		}
		if it.IsEssential && it.Quantity <= 0 {
			s.MissingEssentials++
		}
	}
	return s
}
