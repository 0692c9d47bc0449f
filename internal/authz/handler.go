package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quantfolio/quantfolio/internal/platform/httpx"
)

// ConfigHandler exposes the static allow-list snapshot for operational
// visibility. Runtime decisions never read it.
type ConfigHandler struct {
	store *Store
	mw    Middleware
}

// NewConfigHandler builds a ConfigHandler instance.
func NewConfigHandler(store *Store, mw Middleware) *ConfigHandler {
	return &ConfigHandler{store: store, mw: mw}
}

// MountRoutes registers the diagnostics route.
func (h *ConfigHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(KnownRoles()...))
		r.Get("/config", h.showConfig)
	})
}

func (h *ConfigHandler) showConfig(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"allowlists": h.store.Snapshot()})
}
