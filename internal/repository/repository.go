// Package repository reads and writes pantry and shopping items in a
// DocumentStore, converting them through the codec on the way in and out.
//
// Two forms are offered. Get, Put, Delete, List and Summary report failures
// to the caller. Fetch, Update and DeleteItem log failures and swallow them:
// a failed Fetch looks the same as a missing document.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pantrywisely/pantry/internal/codec"
	"github.com/pantrywisely/pantry/internal/metrics"
	"github.com/pantrywisely/pantry/pkg/types"
)

// Operation names used in logs, errors and metrics.
const (
	OpFetch  = "fetch"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
)

const component = "repository"

// OpError describes a failed store operation.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// panicError carries a value recovered from a store that panicked.
type panicError struct {
	value any
}

func (e *panicError) Error() string { return "unknown error" }

// Repository is safe for concurrent use as long as its store is. It keeps no
// state between calls.
type Repository struct {
	store    types.DocumentStore
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New returns a Repository over store. A nil logger uses slog.Default and a
// nil recorder records nothing.
func New(store types.DocumentStore, logger *slog.Logger, recorder metrics.Recorder) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Repository{store: store, logger: logger, recorder: recorder}
}

// Get reads the document at path and decodes it into dst. It returns
// types.ErrNotFound when there is no document and an *OpError otherwise.
func (r *Repository) Get(ctx context.Context, path string, dst any) error {
	start := time.Now()
	var rec types.Record
	err := guard(OpFetch, path, func() error {
		var err error
		rec, err = r.store.Get(ctx, path)
		return err
	})
	if err == nil {
		r.logger.Debug("snapshot", slog.String("path", path), slog.Any("data", rec))
		if derr := codec.Decode(rec, dst); derr != nil {
			err = &OpError{Op: OpFetch, Path: path, Err: derr}
		}
	}
	r.record(OpFetch, start, err)
	return err
}

// Put serializes item and merges it into the document at path.
func (r *Repository) Put(ctx context.Context, path string, item types.Item) error {
	start := time.Now()
	err := guard(OpUpdate, path, func() error {
		return r.store.Update(ctx, path, codec.Encode(item))
	})
	r.record(OpUpdate, start, err)
	return err
}

// Replace writes item at path so that the stored item equals it: optional
// fields item leaves unset are removed from the stored document.
func (r *Repository) Replace(ctx context.Context, path string, item types.Item) error {
	start := time.Now()
	err := guard(OpUpdate, path, func() error {
		return r.store.Update(ctx, path, codec.EncodeReplace(item))
	})
	r.record(OpUpdate, start, err)
	return err
}

// Delete removes the document at path. A missing document is not an error.
func (r *Repository) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := guard(OpDelete, path, func() error {
		return r.store.Remove(ctx, path)
	})
	r.record(OpDelete, start, err)
	return err
}

// Fetch returns the item at path, or nil when it is missing or could not be
// read. Read failures are logged.
func Fetch[T any](ctx context.Context, r *Repository, path string) *T {
	var v T
	if err := r.Get(ctx, path, &v); err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			r.logFailure(OpFetch, path, err)
		}
		return nil
	}
	return &v
}

// Update writes item at path. Failures are logged and not returned.
func (r *Repository) Update(ctx context.Context, path string, item types.Item) {
	if err := r.Put(ctx, path, item); err != nil {
		r.logFailure(OpUpdate, path, err)
	}
}

// DeleteItem removes the document at path. Failures are logged and not
// returned.
func (r *Repository) DeleteItem(ctx context.Context, path string) {
	if err := r.Delete(ctx, path); err != nil {
		r.logFailure(OpDelete, path, err)
	}
}

// List decodes every document directly below collection, ordered by id.
// Documents that do not decode are skipped with a warning.
func List[T any](ctx context.Context, r *Repository, collection string) ([]T, error) {
	start := time.Now()
	var docs map[string]types.Record
	err := guard(OpList, collection, func() error {
		var err error
		docs, err = r.store.List(ctx, collection)
		return err
	})
	r.record(OpList, start, err)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	items := make([]T, 0, len(ids))
	for _, id := range ids {
		var v T
		if err := codec.Decode(docs[id], &v); err != nil {
			r.logger.Warn("skipping undecodable document",
				slog.String("component", component),
				slog.String("path", collection+"/"+id),
				slog.String("error", err.Error()),
			)
			continue
		}
		items = append(items, v)
	}
	return items, nil
}

// Summary computes the overview counters for the pantry items stored in
// collection. A non-positive window uses types.DefaultExpiryWindow.
func (r *Repository) Summary(ctx context.Context, collection string, now time.Time, window time.Duration) (types.PantrySummary, error) {
	items, err := List[types.PantryItem](ctx, r, collection)
	if err != nil {
		return types.PantrySummary{}, err
	}
	return types.Summarize(items, now, window), nil
}

// guard runs fn, turning store errors into *OpError and a panic into an
// *OpError wrapping a panicError. ErrNotFound is returned as is.
func guard(op, path string, fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &OpError{Op: op, Path: path, Err: &panicError{value: v}}
		}
	}()
	if err := fn(); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrNotFound
		}
		return &OpError{Op: op, Path: path, Err: err}
	}
	return nil
}

func (r *Repository) record(op string, start time.Time, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, types.ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case err != nil:
		outcome = metrics.OutcomeError
	}
	r.recorder.RecordOperation(op, outcome, time.Since(start))
}

func (r *Repository) logFailure(op, path string, err error) {
	attrs := []any{
		slog.String("component", component),
		slog.String("op", op),
		slog.String("path", path),
	}
	var opErr *OpError
	var pe *panicError
	switch {
	case errors.As(err, &pe):
		attrs = append(attrs, slog.String("error", pe.Error()), slog.String("panic", fmt.Sprint(pe.value)))
	case errors.As(err, &opErr):
		attrs = append(attrs, slog.String("error", opErr.Err.Error()))
	case err != nil:
		attrs = append(attrs, slog.String("error", err.Error()))
	default:
		attrs = append(attrs, slog.String("error", "unknown error"))
	}
	r.logger.Error("store operation failed", attrs...)
}
