// Package sqlite implements the local DocumentStore backend. documents.jsonl
// in the data directory is the source of truth; an SQLite database rebuilt
// from it on Attach serves reads and keeps writes ordered.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pantrywisely/pantry/pkg/types"
)

// dbFileName is the SQLite file created inside DataDir.
const dbFileName = "pantry.db"

var _ types.DocumentStore = (*Backend)(nil)

// Backend implements types.DocumentStore on SQLite and JSONL.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB

	// Sync strategy state.
	syncStrategy  string         // immediate, on_close or batch
	batchSize     int            // writes before a batch flush
	batchInterval time.Duration  // time between batch flushes
	pendingWrites []pendingWrite // writes not yet persisted to JSONL
	batchTimer    *time.Timer
	batchMu       sync.Mutex // protects pendingWrites and batchTimer
}

// pendingWrite records a mutation whose JSONL persist was deferred.
type pendingWrite struct {
	operation string // "update" or "remove"
	path      string
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Open creates a backend and attaches it to config.
func Open(config types.Config) (*Backend, error) {
	b := NewBackend()
	if err := b.Attach(config); err != nil {
		return nil, err
	}
	return b, nil
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, builds a fresh SQLite schema and
// loads documents.jsonl into it.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if config.Backend == "" {
		config.Backend = types.BackendSQLite
	}
	if config.Backend != types.BackendSQLite {
		return fmt.Errorf("%w: %q is not %q", types.ErrBackendUnknown, config.Backend, types.BackendSQLite)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is a cache of documents.jsonl; start from scratch.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps SQLite writes serialized.
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := ensureJSONL(documentsPath(dataDir)); err != nil {
		db.Close()
		return err
	}
	if _, err := loadDocumentsJSONL(db, dataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.config.DataDir = dataDir
	b.syncStrategy = config.GetSyncStrategy()
	b.batchSize = config.GetBatchSize()
	b.batchInterval = time.Duration(config.GetBatchInterval()) * time.Second
	b.pendingWrites = nil
	b.attached = true

	if b.syncStrategy == types.SyncBatch && b.batchInterval > 0 {
		b.startBatchTimer()
	}
	return nil
}

// Detach flushes pending writes and releases the SQLite connection.
// Detach is idempotent. After Detach, operations return ErrStoreClosed.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()

	if err := b.flushPendingWritesLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// Close implements types.DocumentStore.
func (b *Backend) Close() error {
	return b.Detach()
}

// DataDir returns the directory the backend persists to.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// persistLocked writes the whole documents table to documents.jsonl.
// The caller must hold b.mu.
func (b *Backend) persistLocked() error {
	rows, err := b.db.Query("SELECT path, body, updated_at FROM documents ORDER BY path")
	if err != nil {
		return fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var doc documentJSON
		var body string
		if err := rows.Scan(&doc.Path, &body, &doc.UpdatedAt); err != nil {
			return fmt.Errorf("scanning document: %w", err)
		}
		doc.Body = json.RawMessage(body)
		line, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document %s: %w", doc.Path, err)
		}
		records = append(records, line)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(documentsPath(b.config.DataDir), records)
}

// afterWriteLocked persists immediately or queues the write, depending on
// the sync strategy. The caller must hold b.mu write lock.
func (b *Backend) afterWriteLocked(operation, path string) error {
	if b.shouldPersistImmediately() {
		return b.persistLocked()
	}
	b.queueWrite(operation, path)
	return nil
}

// shouldPersistImmediately returns true for the immediate strategy (default).
func (b *Backend) shouldPersistImmediately() bool {
	return b.syncStrategy == types.SyncImmediate || b.syncStrategy == ""
}

// queueWrite adds a write to the pending queue. For the batch strategy the
// queue is flushed once it reaches batchSize.
// The caller must hold b.mu write lock.
func (b *Backend) queueWrite(operation, path string) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	b.pendingWrites = append(b.pendingWrites, pendingWrite{operation: operation, path: path})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		// A failed flush keeps the queue; the next flush retries.
		_ = b.flushPendingWritesBatchLocked()
	}
}

// flushPendingWritesLocked flushes all pending writes to documents.jsonl.
// The caller must hold b.mu write lock.
func (b *Backend) flushPendingWritesLocked() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	return b.flushPendingWritesBatchLocked()
}

// flushPendingWritesBatchLocked persists the current table once, covering
// every queued write. The caller must hold b.mu and b.batchMu.
func (b *Backend) flushPendingWritesBatchLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}
	last := b.pendingWrites[len(b.pendingWrites)-1]
	if err := b.persistLocked(); err != nil {
		return fmt.Errorf("flush %d writes (last %s %s): %w", len(b.pendingWrites), last.operation, last.path, err)
	}
	b.pendingWrites = nil
	return nil
}

// pendingCount returns the number of queued writes.
func (b *Backend) pendingCount() int {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return len(b.pendingWrites)
}

// startBatchTimer starts the periodic flush for the batch strategy.
// The caller must hold b.mu.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		return
	}

	b.batchTimer = time.AfterFunc(b.batchInterval, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if !b.attached {
			return
		}

		_ = b.flushPendingWritesLocked()

		b.batchMu.Lock()
		if b.batchTimer != nil && b.attached {
			b.batchTimer.Reset(b.batchInterval)
		}
		b.batchMu.Unlock()
	})
}

// stopBatchTimer stops the batch interval timer if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
