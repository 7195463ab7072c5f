package transactions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockflow-io/stockflow/internal/platform/httpx"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// Handler exposes the transaction log for audit review.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes attaches transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var filter ListFilter
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, shared.NewValidationError("product_id", "invalid uuid"))
			return
		}
		filter.ProductID = &id
	}
	filter.Reference = r.URL.Query().Get("reference")
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.repo.List(r.Context(), actor.OrgID, filter)
	if err != nil {
		h.logger.Error("list transactions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": records})
}
