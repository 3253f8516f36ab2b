package types

import (
	"context"
	"errors"
)

// Record is a JSON-like document as held by a DocumentStore. Values are the
// ones encoding/json produces (string, float64, bool, nil, []any,
// map[string]any). A domain record may additionally carry time.Time values in
// its temporal fields; a serialized record carries ISO-8601 strings there.
type Record map[string]any

// SerializedItem is the wire form of a PantryItem or ShopItem: the same field
// set with every temporal field rendered as an ISO-8601 string.
type SerializedItem = Record

// Temporal field names recognized by the item codec.
const (
	FieldExpirationDate = "expirationDate"
	FieldAdded          = "added"
)

// TemporalFields lists the record fields that travel as ISO-8601 strings.
var TemporalFields = []string{FieldExpirationDate, FieldAdded}

// Clone returns a shallow copy of the record. A nil record clones to nil.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// DocumentStore is a path-addressed key-value store of JSON-like documents.
// Paths are slash-delimited; a document and its descendants form a subtree.
type DocumentStore interface {
	// Get returns the document stored at path.
	// Returns ErrNotFound if no document exists there.
	Get(ctx context.Context, path string) (Record, error)

	// Update merges fields into the document at path, creating it when
	// absent. Only the top-level keys present in fields are touched; a nil
	// value removes that key. A document left without keys is removed.
	Update(ctx context.Context, path string, fields Record) error

	// Remove deletes the document at path and every document below it.
	// Removing an absent path succeeds.
	Remove(ctx context.Context, path string) error

	// List returns the documents directly below prefix, keyed by the last
	// path segment. An empty prefix returns an empty map.
	List(ctx context.Context, prefix string) (map[string]Record, error)

	// Close releases the connection. Further calls return ErrStoreClosed.
	Close() error
}

// Store operation errors.
var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
	ErrInvalidData = errors.New("invalid document data")
	ErrStoreClosed = errors.New("store is closed")
)
