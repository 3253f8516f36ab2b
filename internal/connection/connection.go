// Package connection owns the process-wide DocumentStore handle. The store
// is opened on first use from the configured settings and closed by Shutdown.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pantrywisely/pantry/internal/postgres"
	"github.com/pantrywisely/pantry/internal/rtdb"
	"github.com/pantrywisely/pantry/internal/sqlite"
	"github.com/pantrywisely/pantry/pkg/types"
)

// Opener builds a store for a validated configuration.
type Opener func(ctx context.Context, cfg types.Config, logger *slog.Logger) (types.DocumentStore, error)

// Open is the default Opener. It picks the backend named by cfg.Backend,
// defaulting to SQLite.
func Open(ctx context.Context, cfg types.Config, logger *slog.Logger) (types.DocumentStore, error) {
	if cfg.Backend == "" {
		cfg.Backend = types.BackendSQLite
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var (
		store types.DocumentStore
		err   error
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		var b *sqlite.Backend
		if b, err = sqlite.Open(cfg); err == nil {
			store = b
		}
	case types.BackendPostgres:
		var s *postgres.Store
		if s, err = postgres.Open(ctx, cfg.DatabaseURL); err == nil {
			store = s
		}
	case types.BackendRTDB:
		var c *rtdb.Client
		if c, err = rtdb.NewClient(cfg, nil, logger); err == nil {
			store = c
		}
	default:
		err = fmt.Errorf("%w: %s", types.ErrBackendUnknown, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Handle holds at most one open store.
type Handle struct {
	mu         sync.Mutex
	cfg        types.Config
	configured bool
	store      types.DocumentStore
	open       Opener
	logger     *slog.Logger
}

// NewHandle returns an unconfigured Handle. A nil opener uses Open and a nil
// logger uses whatever slog.Default is at the time of each call.
func NewHandle(open Opener, logger *slog.Logger) *Handle {
	if open == nil {
		open = Open
	}
	return &Handle{open: open, logger: logger}
}

func (h *Handle) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// Configure records cfg for the next Get. It fails with ErrAlreadyAttached
// while a store is open.
func (h *Handle) Configure(cfg types.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store != nil {
		return types.ErrAlreadyAttached
	}
	h.cfg = cfg
	h.configured = true
	return nil
}

// Get returns the open store, opening it on the first call.
func (h *Handle) Get(ctx context.Context) (types.DocumentStore, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store != nil {
		return h.store, nil
	}
	if !h.configured {
		return nil, types.ErrNotConfigured
	}
	store, err := h.open(ctx, h.cfg, h.log())
	if err != nil {
		return nil, err
	}
	h.log().Info("store opened", slog.String("backend", h.cfg.Backend))
	h.store = store
	return store, nil
}

// Shutdown closes the open store, if any, and keeps the configuration so a
// later Get reopens it. Calling it again is a no-op.
func (h *Handle) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	h.log().Info("store closed", slog.String("backend", h.cfg.Backend))
	return err
}

var defaultHandle = NewHandle(nil, nil)

// Default returns the process-wide handle.
func Default() *Handle { return defaultHandle }

// Configure sets up the process-wide handle.
func Configure(cfg types.Config) error { return defaultHandle.Configure(cfg) }

// Get returns the process-wide store, opening it on first use.
func Get(ctx context.Context) (types.DocumentStore, error) { return defaultHandle.Get(ctx) }

// Shutdown closes the process-wide store.
func Shutdown() error { return defaultHandle.Shutdown() }
