// Package httpapi serves the pantry and shopping list over a JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pantrywisely/pantry/internal/metrics"
	"github.com/pantrywisely/pantry/internal/repository"
	"github.com/pantrywisely/pantry/pkg/types"
)

// RouterDeps collects what NewRouter needs. Logger, Recorder, RateLimiter,
// Gatherer and Now are optional.
type RouterDeps struct {
	Repo        *repository.Repository
	Logger      *slog.Logger
	Recorder    metrics.Recorder
	RateLimiter *RateLimiter
	Gatherer    prometheus.Gatherer
	Now         func() time.Time
}

// NewRouter wires the API routes and the middleware chain:
//
//	Recovery → Logging → RateLimit
//
// /healthz and /metrics sit outside the rate limit.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	pantry := &itemHandler[types.PantryItem]{repo: deps.Repo, collection: types.CollectionPantry}
	shopping := &itemHandler[types.ShopItem]{repo: deps.Repo, collection: types.CollectionShopping}
	summary := &summaryHandler{repo: deps.Repo, now: now}

	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware(logger))
	r.Use(NewLoggingMiddleware(logger, recorder))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Route("/api/pantry", pantry.routes)
		r.Route("/api/shopping", shopping.routes)
		r.Get("/api/summary", summary.get)
	})

	return r
}
