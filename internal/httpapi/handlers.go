package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pantrywisely/pantry/internal/codec"
	"github.com/pantrywisely/pantry/internal/repository"
	"github.com/pantrywisely/pantry/pkg/types"
)

// maxRequestBody caps item request bodies.
const maxRequestBody = 1 << 20

// storable is an item kind the API can write.
type storable interface {
	types.Item
	Validate() error
}

// itemHandler serves one collection of items of kind T.
type itemHandler[T storable] struct {
	repo       *repository.Repository
	collection string
}

func (h *itemHandler[T]) routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.put)
		r.Delete("/", h.delete)
	})
}

func (h *itemHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := repository.List[T](r.Context(), h.repo, h.collection)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *itemHandler[T]) get(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := h.repo.Get(r.Context(), h.path(chi.URLParam(r, "id")), &item); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// create stores a new item, assigning an id when the body has none.
func (h *itemHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	rec, err := readRecord(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id, _ := rec["id"].(string); id == "" {
		rec["id"] = uuid.Must(uuid.NewV7()).String()
	}
	item, ok := h.decodeValid(w, rec)
	if !ok {
		return
	}
	path := h.path(item.ItemID())
	if err := h.repo.Put(r.Context(), path, item); err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Location", "/api/"+path)
	writeJSON(w, http.StatusCreated, item)
}

// put replaces the stored fields of the item named in the URL.
func (h *itemHandler[T]) put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := readRecord(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch bodyID, _ := rec["id"].(string); bodyID {
	case "":
		rec["id"] = id
	case id:
	default:
		writeError(w, http.StatusBadRequest, "id in body does not match URL")
		return
	}
	item, ok := h.decodeValid(w, rec)
	if !ok {
		return
	}
	if err := h.repo.Replace(r.Context(), h.path(id), item); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *itemHandler[T]) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), h.path(chi.URLParam(r, "id"))); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *itemHandler[T]) path(id string) string {
	return h.collection + "/" + id
}

// decodeValid decodes rec into T and validates it, writing a 400 on failure.
func (h *itemHandler[T]) decodeValid(w http.ResponseWriter, rec types.Record) (T, bool) {
	var item T
	if err := codec.Decode(rec, &item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return item, false
	}
	if err := item.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return item, false
	}
	return item, true
}

type summaryHandler struct {
	repo *repository.Repository
	now  func() time.Time
}

func (h *summaryHandler) get(w http.ResponseWriter, r *http.Request) {
	window := types.DefaultExpiryWindow
	if s := r.URL.Query().Get("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration such as 72h")
			return
		}
		window = d
	}
	s, err := h.repo.Summary(r.Context(), types.CollectionPantry, h.now(), window)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// readRecord reads a JSON object from the request body.
func readRecord(w http.ResponseWriter, r *http.Request) (types.Record, error) {
	var rec types.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&rec); err != nil {
		return nil, errors.New("request body must be a JSON object")
	}
	if rec == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	return rec, nil
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, types.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, "invalid id")
	default:
		writeError(w, http.StatusBadGateway, "store unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
