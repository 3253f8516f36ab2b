package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pantrywisely/pantry/internal/docpath"
)

// loadDocumentsJSONL reads documents.jsonl from dataDir and inserts every
// record into the documents table. Loading is transactional: all succeed or
// the table stays empty. Malformed lines, records with an invalid path and
// records whose body is not a JSON object are skipped. Unknown fields are
// ignored. A later line for the same path replaces an earlier one.
func loadDocumentsJSONL(db *sql.DB, dataDir string) (int, error) {
	records, err := readJSONL(documentsPath(dataDir))
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", documentsJSONL, err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO documents (path, parent, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			parent = excluded.parent,
			body = excluded.body,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("preparing document insert: %w", err)
	}
	defer stmt.Close()

	loaded := 0
	for _, rec := range records {
		doc, ok := parseDocumentLine(rec)
		if !ok {
			continue
		}
		if _, err := stmt.Exec(doc.Path, docpath.Parent(doc.Path), string(doc.Body), doc.UpdatedAt); err != nil {
			return 0, fmt.Errorf("loading document %s: %w", doc.Path, err)
		}
		loaded++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing load transaction: %w", err)
	}
	return loaded, nil
}

// parseDocumentLine validates one JSONL record. It reports false for records
// that cannot be loaded.
func parseDocumentLine(rec json.RawMessage) (documentJSON, bool) {
	var doc documentJSON
	if err := json.Unmarshal(rec, &doc); err != nil {
		return doc, false
	}
	clean, err := docpath.Clean(doc.Path)
	if err != nil {
		return doc, false
	}
	doc.Path = clean

	var body map[string]any
	if err := json.Unmarshal(doc.Body, &body); err != nil || len(body) == 0 {
		return doc, false
	}
	if _, err := time.Parse(time.RFC3339Nano, doc.UpdatedAt); err != nil {
		doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return doc, true
}
