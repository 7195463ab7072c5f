package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stockflow-io/stockflow/internal/platform/httpx"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// Handler exposes stock endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/records", h.list)
	r.Post("/records", h.create)
	r.Get("/records/{id}", h.get)
	r.Get("/records/{id}/movements", h.movements)
	r.Post("/adjustments", h.adjust)
	r.Post("/transfers", h.transfer)
}

type createRecordRequest struct {
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	Location     string    `json:"location" validate:"required"`
	Quantity     int64     `json:"quantity" validate:"gte=0"`
	MinThreshold int64     `json:"min_threshold" validate:"gte=0"`
	MaxThreshold int64     `json:"max_threshold" validate:"gte=0"`
	ReorderPoint int64     `json:"reorder_point" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createRecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", err.Error()))
		return
	}

	record, err := h.service.CreateRecord(r.Context(), CreateRecordInput{
		OrgID:        actor.OrgID,
		ProductID:    req.ProductID,
		Location:     req.Location,
		Quantity:     req.Quantity,
		MinThreshold: req.MinThreshold,
		MaxThreshold: req.MaxThreshold,
		ReorderPoint: req.ReorderPoint,
	})
	if err != nil {
		h.logger.Warn("create stock record failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.service.List(r.Context(), actor.OrgID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
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
	record, err := h.service.GetByID(r.Context(), actor.OrgID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
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
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), actor.OrgID, id, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements})
}

type adjustRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Location  string    `json:"location" validate:"required"`
	Delta     int64     `json:"delta" validate:"required"`
	Reference string    `json:"reference"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", err.Error()))
		return
	}

	record, _, err := h.service.Adjust(r.Context(), AdjustInput{
		OrgID:     actor.OrgID,
		ProductID: req.ProductID,
		Location:  req.Location,
		Delta:     req.Delta,
		Reference: req.Reference,
	})
	if err != nil {
		h.logger.Warn("stock adjustment failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

type transferRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	From      string    `json:"from" validate:"required"`
	To        string    `json:"to" validate:"required"`
	Quantity  int64     `json:"quantity" validate:"gte=1"`
	Reference string    `json:"reference"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", err.Error()))
		return
	}

	out, in, err := h.service.Transfer(r.Context(), TransferInput{
		OrgID:     actor.OrgID,
		ProductID: req.ProductID,
		From:      req.From,
		To:        req.To,
		Quantity:  req.Quantity,
		Reference: req.Reference,
	})
	if err != nil {
		h.logger.Warn("stock transfer failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"out": out, "in": in})
}
