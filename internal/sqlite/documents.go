package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pantrywisely/pantry/internal/docpath"
	"github.com/pantrywisely/pantry/pkg/types"
)

// Get returns the document at path.
// Returns ErrInvalidPath for a malformed path and ErrNotFound if absent.
func (b *Backend) Get(ctx context.Context, path string) (types.Record, error) {
	p, err := docpath.Clean(path)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreClosed
	}

	var body string
	err = b.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE path = ?", p).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", p, err)
	}
	return decodeBody(p, body)
}

// Update merges fields into the document at path. A nil value removes the
// key; a document left empty is deleted. Updating with no fields is a no-op.
func (b *Backend) Update(ctx context.Context, path string, fields types.Record) error {
	p, err := docpath.Clean(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreClosed
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current := types.Record{}
	var body string
	err = tx.QueryRowContext(ctx, "SELECT body FROM documents WHERE path = ?", p).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading document %s: %w", p, err)
	default:
		if current, err = decodeBody(p, body); err != nil {
			return err
		}
	}

	for k, v := range fields {
		if v == nil {
			delete(current, k)
			continue
		}
		current[k] = v
	}

	if len(current) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", p); err != nil {
			return fmt.Errorf("deleting emptied document %s: %w", p, err)
		}
	} else {
		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidData, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (path, parent, body, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				body = excluded.body,
				updated_at = excluded.updated_at`,
			p, docpath.Parent(p), string(data), time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("upserting document %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing update: %w", err)
	}
	return b.afterWriteLocked("update", p)
}

// Remove deletes the document at path and every document below it.
// Removing an absent path is not an error.
func (b *Backend) Remove(ctx context.Context, path string) error {
	p, err := docpath.Clean(path)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return types.ErrStoreClosed
	}

	res, err := b.db.ExecContext(ctx,
		"DELETE FROM documents WHERE path = ? OR substr(path, 1, length(?) + 1) = ? || '/'",
		p, p, p)
	if err != nil {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	return b.afterWriteLocked("remove", p)
}

// List returns the documents directly below prefix, keyed by their last
// path segment.
func (b *Backend) List(ctx context.Context, prefix string) (map[string]types.Record, error) {
	p, err := docpath.Clean(prefix)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreClosed
	}

	rows, err := b.db.QueryContext(ctx, "SELECT path, body FROM documents WHERE parent = ? ORDER BY path", p)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", p, err)
	}
	defer rows.Close()

	out := make(map[string]types.Record)
	for rows.Next() {
		var path, body string
		if err := rows.Scan(&path, &body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		rec, err := decodeBody(path, body)
		if err != nil {
			return nil, err
		}
		out[docpath.Base(path)] = rec
	}
	return out, rows.Err()
}

func decodeBody(path, body string) (types.Record, error) {
	var rec types.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", path, err)
	}
	return rec, nil
}
