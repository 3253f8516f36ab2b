package rtdb

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrywisely/pantry/pkg/types"
)

// fakeDB is an in-memory stand-in for the REST interface, storing one JSON
// object per node path.
type fakeDB struct {
	mu       sync.Mutex
	nodes    map[string]map[string]any
	requests []*http.Request
}

func newFakeServer(t *testing.T) (*fakeDB, *httptest.Server) {
	t.Helper()
	db := &fakeDB{nodes: map[string]map[string]any{}}
	srv := httptest.NewServer(http.HandlerFunc(db.serve))
	t.Cleanup(srv.Close)
	return db, srv
}

func (f *fakeDB) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Clone(r.Context()))

	path := r.URL.Path[1 : len(r.URL.Path)-len(".json")]
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		if node, ok := f.nodes[path]; ok {
			json.NewEncoder(w).Encode(node)
			return
		}
		children := map[string]any{}
		for p, node := range f.nodes {
			if len(p) > len(path)+1 && p[:len(path)+1] == path+"/" {
				children[p[len(path)+1:]] = node
			}
		}
		if len(children) == 0 {
			io.WriteString(w, "null")
			return
		}
		json.NewEncoder(w).Encode(children)
	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"Invalid data; couldn't parse JSON object."}`)
			return
		}
		node := f.nodes[path]
		if node == nil {
			node = map[string]any{}
		}
		for k, v := range patch {
			if v == nil {
				delete(node, k)
			} else {
				node[k] = v
			}
		}
		if len(node) == 0 {
			delete(f.nodes, path)
		} else {
			f.nodes[path] = node
		}
		json.NewEncoder(w).Encode(patch)
	case http.MethodDelete:
		delete(f.nodes, path)
		io.WriteString(w, "null")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, cfg types.Config) *Client {
	t.Helper()
	cfg.Endpoint = srv.URL
	c, err := NewClient(cfg, srv.Client(), nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "not a url", "/relative/only"} {
		_, err := NewClient(types.Config{Endpoint: endpoint}, nil, nil)
		assert.ErrorIs(t, err, types.ErrEndpointInvalid, endpoint)
	}
}

func TestClient_UpdateThenGet(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv, types.Config{})
	ctx := t.Context()

	require.NoError(t, c.Update(ctx, "pantry/1", types.Record{
		"name":           "Latte",
		"expirationDate": "2025-06-05T00:00:00.000Z",
	}))

	rec, err := c.Get(ctx, "pantry/1")
	require.NoError(t, err)
	assert.Equal(t, types.Record{"name": "Latte", "expirationDate": "2025-06-05T00:00:00.000Z"}, rec)
}

func TestClient_GetNullIsNotFound(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv, types.Config{})

	_, err := c.Get(t.Context(), "pantry/404")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClient_UpdateNullRemovesField(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv, types.Config{})
	ctx := t.Context()

	require.NoError(t, c.Update(ctx, "pantry/2", types.Record{"name": "Pane", "unit": "pezzi"}))
	require.NoError(t, c.Update(ctx, "pantry/2", types.Record{"unit": nil}))

	rec, err := c.Get(ctx, "pantry/2")
	require.NoError(t, err)
	assert.Equal(t, types.Record{"name": "Pane"}, rec)
}

func TestClient_RemoveThenGet(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv, types.Config{})
	ctx := t.Context()

	require.NoError(t, c.Update(ctx, "pantry/3", types.Record{"name": "Pomodori"}))
	require.NoError(t, c.Remove(ctx, "pantry/3"))

	_, err := c.Get(ctx, "pantry/3")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestClient_List(t *testing.T) {
	db, srv := newFakeServer(t)
	c := newTestClient(t, srv, types.Config{})
	ctx := t.Context()

	require.NoError(t, c.Update(ctx, "shopping/a", types.Record{"name": "Uova"}))
	require.NoError(t, c.Update(ctx, "shopping/b", types.Record{"name": "Caffè"}))
	db.nodes["shopping/c"] = nil // rendered as null, not an object

	got, err := c.List(ctx, "shopping")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "Uova", got["a"]["name"])

	empty, err := c.List(ctx, "freezer")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClient_SendsCredentialsAndProject(t *testing.T) {
	db, srv := newFakeServer(t)
	c := newTestClient(t, srv, types.Config{ProjectID: "pantry-dev", Credentials: "s3cret"})

	_, err := c.Get(t.Context(), "pantry/1")
	require.ErrorIs(t, err, types.ErrNotFound)

	require.Len(t, db.requests, 1)
	req := db.requests[0]
	assert.Equal(t, "/pantry/1.json", req.URL.Path)
	assert.Equal(t, "s3cret", req.URL.Query().Get("auth"))
	assert.Equal(t, "pantry-dev", req.Header.Get(projectHeader))
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"Permission denied"}`)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv, types.Config{})

	_, err := c.Get(t.Context(), "pantry/1")
	var se *StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Permission denied", se.Message)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Contains(t, se.Error(), "status 401")
}

func TestClient_TransportErrorHidesCredentials(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv, types.Config{Credentials: "s3cret"})
	srv.Close()

	err := c.Update(t.Context(), "pantry/1", types.Record{"name": "Latte"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cret")
}

func TestClient_InvalidPathAndClosed(t *testing.T) {
	_, srv := newFakeServer(t)
	c := newTestClient(t, srv, types.Config{})
	ctx := t.Context()

	_, err := c.Get(ctx, "pantry/a.b")
	assert.ErrorIs(t, err, types.ErrInvalidPath)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Remove(ctx, "pantry/1"), types.ErrStoreClosed)
}
