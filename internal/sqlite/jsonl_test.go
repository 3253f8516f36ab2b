package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrywisely/pantry/pkg/types"
)

func readLines(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, documentsJSONL))
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestJSONLInitializedEmpty(t *testing.T) {
	dir := t.TempDir()
	attachTemp(t, types.Config{DataDir: dir})

	info, err := os.Stat(filepath.Join(dir, documentsJSONL))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestUpdatePersistedToJSONL(t *testing.T) {
	dir := t.TempDir()
	b := attachTemp(t, types.Config{DataDir: dir})

	require.NoError(t, b.Update(t.Context(), "pantry/1", types.Record{"name": "Latte", "expirationDate": "2025-06-05T00:00:00.000Z"}))

	lines := readLines(t, dir)
	require.Len(t, lines, 1)

	var doc documentJSON
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))
	assert.Equal(t, "pantry/1", doc.Path)
	assert.JSONEq(t, `{"name":"Latte","expirationDate":"2025-06-05T00:00:00.000Z"}`, string(doc.Body))
	_, err := time.Parse(time.RFC3339Nano, doc.UpdatedAt)
	assert.NoError(t, err)
}

func TestRemovePersistedToJSONL(t *testing.T) {
	dir := t.TempDir()
	b := attachTemp(t, types.Config{DataDir: dir})
	ctx := t.Context()

	require.NoError(t, b.Update(ctx, "pantry/1", types.Record{"name": "Latte"}))
	require.NoError(t, b.Update(ctx, "pantry/2", types.Record{"name": "Pane"}))
	require.NoError(t, b.Remove(ctx, "pantry/1"))

	lines := readLines(t, dir)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"pantry/2"`)
}

func TestWriteJSONLReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"old\":true}\n"), 0o644))

	require.NoError(t, writeJSONL(path, []json.RawMessage{
		json.RawMessage(`{"a":1}`),
		json.RawMessage(`{"b":2}`),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteJSONLFailsForMissingDir(t *testing.T) {
	err := writeJSONL(filepath.Join(t.TempDir(), "missing", "x.jsonl"), nil)
	assert.Error(t, err)
}

func TestReadJSONLSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n\nnot json\n{\"b\":2}\n"), 0o644))

	recs, err := readJSONL(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.JSONEq(t, `{"a":1}`, string(recs[0]))
	assert.JSONEq(t, `{"b":2}`, string(recs[1]))
}

func TestEnsureJSONLKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"a\":1}\n"), 0o644))

	require.NoError(t, ensureJSONL(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(data))
}

func TestSyncOnCloseDefersPersist(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{DataDir: dir, SyncStrategy: types.SyncOnClose}))

	require.NoError(t, b.Update(t.Context(), "pantry/1", types.Record{"name": "Latte"}))
	assert.Empty(t, readLines(t, dir), "on_close must not write before Detach")
	assert.Equal(t, 1, b.pendingCount())

	require.NoError(t, b.Detach())
	assert.Len(t, readLines(t, dir), 1)
}

func TestSyncBatchFlushesAtBatchSize(t *testing.T) {
	dir := t.TempDir()
	b := attachTemp(t, types.Config{DataDir: dir, SyncStrategy: types.SyncBatch, BatchSize: 2, BatchInterval: 3600})
	ctx := t.Context()

	require.NoError(t, b.Update(ctx, "pantry/1", types.Record{"name": "Latte"}))
	assert.Empty(t, readLines(t, dir))

	require.NoError(t, b.Update(ctx, "pantry/2", types.Record{"name": "Pane"}))
	assert.Len(t, readLines(t, dir), 2)
	assert.Zero(t, b.pendingCount())
}

func TestSyncBatchFlushesOnInterval(t *testing.T) {
	dir := t.TempDir()
	b := attachTemp(t, types.Config{DataDir: dir, SyncStrategy: types.SyncBatch, BatchSize: 100, BatchInterval: 1})

	require.NoError(t, b.Update(t.Context(), "pantry/1", types.Record{"name": "Latte"}))

	assert.Eventually(t, func() bool {
		return b.pendingCount() == 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Len(t, readLines(t, dir), 1)
}
