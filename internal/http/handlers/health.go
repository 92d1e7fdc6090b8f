package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dresguerra/admingate/internal/cache"
	httperrors "github.com/dresguerra/admingate/internal/http/errors"
	"github.com/dresguerra/admingate/internal/store/pg"
)

// HealthHandler responde /healthz verificando las dependencias vivas.
type HealthHandler struct {
	store *pg.Store
	cache cache.Client
}

// NewHealthHandler crea el handler.
func NewHealthHandler(store *pg.Store, c cache.Client) *HealthHandler {
	return &HealthHandler{store: store, cache: c}
}

// Healthz maneja GET /healthz.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"db": "ok", "cache": "ok"}
	status := http.StatusOK

	if h.store != nil {
		if err := h.store.Pool().Ping(ctx); err != nil {
			checks["db"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	httperrors.WriteJSON(w, status, checks)
}
