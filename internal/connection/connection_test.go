package connection

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrywisely/pantry/internal/rtdb"
	"github.com/pantrywisely/pantry/internal/sqlite"
	"github.com/pantrywisely/pantry/pkg/types"
)

type stubStore struct {
	types.DocumentStore
	closed int
}

func (s *stubStore) Close() error {
	s.closed++
	return nil
}

func countingOpener(opened *int, store types.DocumentStore) Opener {
	return func(context.Context, types.Config, *slog.Logger) (types.DocumentStore, error) {
		*opened++
		return store, nil
	}
}

func TestHandle_GetBeforeConfigure(t *testing.T) {
	h := NewHandle(nil, slog.New(slog.DiscardHandler))
	_, err := h.Get(t.Context())
	assert.ErrorIs(t, err, types.ErrNotConfigured)
}

func TestHandle_OpensOnce(t *testing.T) {
	var opened int
	store := &stubStore{}
	h := NewHandle(countingOpener(&opened, store), slog.New(slog.DiscardHandler))
	require.NoError(t, h.Configure(types.Config{Backend: types.BackendSQLite}))

	s1, err := h.Get(t.Context())
	require.NoError(t, err)
	s2, err := h.Get(t.Context())
	require.NoError(t, err)

	assert.Same(t, store, s1)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, opened)
}

func TestHandle_ShutdownClosesAndReopens(t *testing.T) {
	var opened int
	store := &stubStore{}
	h := NewHandle(countingOpener(&opened, store), slog.New(slog.DiscardHandler))
	require.NoError(t, h.Configure(types.Config{Backend: types.BackendSQLite}))

	_, err := h.Get(t.Context())
	require.NoError(t, err)
	assert.ErrorIs(t, h.Configure(types.Config{}), types.ErrAlreadyAttached)

	require.NoError(t, h.Shutdown())
	require.NoError(t, h.Shutdown())
	assert.Equal(t, 1, store.closed)

	_, err = h.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, opened)
}

func TestHandle_OpenErrorIsNotCached(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	h := NewHandle(func(context.Context, types.Config, *slog.Logger) (types.DocumentStore, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &stubStore{}, nil
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, h.Configure(types.Config{}))

	_, err := h.Get(t.Context())
	assert.ErrorIs(t, err, boom)
	_, err = h.Get(t.Context())
	assert.NoError(t, err)
}

func TestOpen_SQLiteByDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(t.Context(), types.Config{DataDir: dir}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	b, ok := store.(*sqlite.Backend)
	require.True(t, ok, "got %T", store)
	assert.Equal(t, dir, b.DataDir())
	assert.FileExists(t, filepath.Join(dir, "documents.jsonl"))
}

func TestOpen_RTDB(t *testing.T) {
	store, err := Open(t.Context(), types.Config{Backend: types.BackendRTDB, Endpoint: "https://pantry-dev.example.com"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &rtdb.Client{}, store)
}

func TestOpen_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.Config
		want error
	}{
		{"unknown backend", types.Config{Backend: "mongo"}, types.ErrBackendUnknown},
		{"postgres without url", types.Config{Backend: types.BackendPostgres}, types.ErrDatabaseURLEmpty},
		{"rtdb without endpoint", types.Config{Backend: types.BackendRTDB}, types.ErrEndpointInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(t.Context(), tt.cfg, nil)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, store)
		})
	}
}

func TestPackageLevelHandle(t *testing.T) {
	prev := defaultHandle
	t.Cleanup(func() { defaultHandle = prev })
	defaultHandle = NewHandle(nil, slog.New(slog.DiscardHandler))

	require.NoError(t, Configure(types.Config{DataDir: t.TempDir()}))
	store, err := Get(t.Context())
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, Shutdown())
	assert.NoError(t, Shutdown())
}
