package handlers

import (
	"context"
	"net/http"

	"github.com/cibounipi/mensabot/internal/application/services"
	"github.com/cibounipi/mensabot/internal/store"
)

// Reloader rebuilds the snapshot on demand
type Reloader interface {
	Reload(ctx context.Context, trigger string) (*store.Snapshot, error)
}

// AdminHandler handles operational requests
type AdminHandler struct {
	reloader Reloader
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(reloader Reloader) *AdminHandler {
	return &AdminHandler{reloader: reloader}
}

// Reload handles POST /api/admin/reload
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reloader.Reload(r.Context(), services.TriggerManual)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"version":           snap.Version,
		"loaded_at":         snap.LoadedAt,
		"menu_days":         snap.Menus.Len(),
		"facilities":        snap.Facilities.Len(),
		"rate_bands":        len(snap.Rates.Bands()),
		"combination_notes": len(snap.Combinations),
	})
}
