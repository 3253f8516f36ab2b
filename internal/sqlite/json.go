package sqlite

import "encoding/json"

// documentsJSONL is the source-of-truth file inside DataDir.
const documentsJSONL = "documents.jsonl"

// documentJSON is one line of documents.jsonl. Body holds the stored record
// verbatim; temporal fields are already ISO-8601 strings at this layer.
type documentJSON struct {
	Path      string          `json:"path"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt string          `json:"updated_at"`
}
