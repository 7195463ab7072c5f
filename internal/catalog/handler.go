package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockflow-io/stockflow/internal/platform/httpx"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// Handler exposes read access to the product directory.
type Handler struct {
	logger      *slog.Logger
	directory   Directory
	invalidator Invalidator
}

// NewHandler constructs Handler. invalidator may be nil when no cache sits in
// front of the directory.
func NewHandler(logger *slog.Logger, directory Directory, invalidator Invalidator) *Handler {
	return &Handler{logger: logger, directory: directory, invalidator: invalidator}
}

// MountRoutes attaches catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Delete("/{id}/cache", h.invalidate)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.NewValidationError("id", "invalid uuid"))
		return
	}
	product, err := h.directory.Lookup(r.Context(), actor.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.NewValidationError("id", "invalid uuid"))
		return
	}
	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(r.Context(), actor.OrgID, id); err != nil {
			h.logger.Error("catalog cache invalidation failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
