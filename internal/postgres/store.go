// Package postgres implements the DocumentStore on PostgreSQL, keeping each
// document as a JSONB body keyed by its path.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	_ "github.com/lib/pq"

	"github.com/pantrywisely/pantry/internal/docpath"
	"github.com/pantrywisely/pantry/pkg/types"
)

// createDocuments is applied on Open. Documents carry no schema of their own.
const createDocuments = `
CREATE TABLE IF NOT EXISTS documents (
    path       TEXT PRIMARY KEY,
    parent     TEXT NOT NULL,
    body       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent);`

var _ types.DocumentStore = (*Store)(nil)

// Store is a DocumentStore backed by a PostgreSQL database.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open connects to databaseURL, verifies the connection and creates the
// documents table when missing.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createDocuments); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an already opened database handle. The documents table must
// exist.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the document at path, or ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (types.Record, error) {
	p, err := s.check(path)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = s.db.QueryRowContext(ctx, "SELECT body FROM documents WHERE path = $1", p).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", p, err)
	}
	return decodeBody(p, body)
}

// Update merges fields into the document at path using JSONB concatenation,
// then drops keys whose value is null and deletes the document if nothing
// is left.
func (s *Store) Update(ctx context.Context, path string, fields types.Record) error {
	p, err := s.check(path)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (path, parent, body, updated_at) VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (path) DO UPDATE SET
			body = documents.body || EXCLUDED.body,
			updated_at = now()`,
		p, docpath.Parent(p), string(patch)); err != nil {
		return fmt.Errorf("upserting document %s: %w", p, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET body = (
			SELECT COALESCE(jsonb_object_agg(key, value), '{}'::jsonb)
			FROM jsonb_each(documents.body)
			WHERE value <> 'null'::jsonb
		) WHERE path = $1`, p); err != nil {
		return fmt.Errorf("dropping null fields of %s: %w", p, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM documents WHERE path = $1 AND body = '{}'::jsonb", p); err != nil {
		return fmt.Errorf("deleting emptied document %s: %w", p, err)
	}
	return tx.Commit()
}

// Remove deletes the document at path and everything below it.
func (s *Store) Remove(ctx context.Context, path string) error {
	p, err := s.check(path)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE path = $1 OR left(path, length($1) + 1) = $1 || '/'", p); err != nil {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	return nil
}

// List returns the documents directly below prefix keyed by last segment.
func (s *Store) List(ctx context.Context, prefix string) (map[string]types.Record, error) {
	p, err := s.check(prefix)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT path, body FROM documents WHERE parent = $1", p)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", p, err)
	}
	defer rows.Close()

	out := make(map[string]types.Record)
	for rows.Next() {
		var path string
		var body []byte
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

// Close closes the database handle. It is safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) check(path string) (string, error) {
	if s.closed.Load() {
		return "", types.ErrStoreClosed
	}
	return docpath.Clean(path)
}

func decodeBody(path string, body []byte) (types.Record, error) {
	var rec types.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", path, err)
	}
	return rec, nil
}
