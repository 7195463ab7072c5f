package alerts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockflow-io/stockflow/internal/platform/httpx"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// Handler exposes alert endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches alert routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/{id}/read", h.markRead)
	r.Post("/{id}/dismiss", h.dismiss)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	unresolvedOnly := r.URL.Query().Get("unresolved") == "true"
	out, err := h.service.List(r.Context(), actor.OrgID, unresolvedOnly)
	if err != nil {
		h.logger.Error("list alerts failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"alerts": out})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.MarkRead)
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.Dismiss)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orgID, id uuid.UUID) error) {
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
	if err := fn(r.Context(), actor.OrgID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
