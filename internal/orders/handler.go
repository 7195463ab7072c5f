package orders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow-io/stockflow/internal/platform/httpx"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// Handler exposes order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}/items", h.updateItems)
	r.Post("/{id}/status", h.updateStatus)
	r.Post("/{id}/payments", h.recordPayment)
}

type orderItemRequest struct {
	ProductID   uuid.UUID        `json:"product_id" validate:"required"`
	Quantity    int64            `json:"quantity" validate:"gte=1"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	DiscountPct decimal.Decimal  `json:"discount_pct"`
	TaxRatePct  decimal.Decimal  `json:"tax_rate_pct"`
}

type createOrderRequest struct {
	Type         OrderType          `json:"type" validate:"required,oneof=purchase sale"`
	SupplierID   *uuid.UUID         `json:"supplier_id"`
	Customer     *CustomerSnapshot  `json:"customer"`
	Items        []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountPct  decimal.Decimal    `json:"discount_pct"`
	ShippingCost decimal.Decimal    `json:"shipping_cost"`
	Notes        string             `json:"notes"`
}

func toItemInputs(items []orderItemRequest) []CreateItemInput {
	inputs := make([]CreateItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, CreateItemInput{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			DiscountPct: item.DiscountPct,
			TaxRatePct:  item.TaxRatePct,
		})
	}
	return inputs
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", err.Error()))
		return
	}

	order, err := h.service.Create(r.Context(), actor, CreateInput{
		Type:         req.Type,
		SupplierID:   req.SupplierID,
		Customer:     req.Customer,
		Items:        toItemInputs(req.Items),
		DiscountPct:  req.DiscountPct,
		ShippingCost: req.ShippingCost,
		Notes:        req.Notes,
	})
	if err != nil {
		h.logger.Warn("create order failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.ActorFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var filter ListFilter
	if v := r.URL.Query().Get("type"); v != "" {
		t := OrderType(v)
		filter.Type = &t
	}
	if v := r.URL.Query().Get("status"); v != "" {
		s := Status(v)
		filter.Status = &s
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	result, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": result})
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
	order, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type updateItemsRequest struct {
	Items        []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountPct  decimal.Decimal    `json:"discount_pct"`
	ShippingCost decimal.Decimal    `json:"shipping_cost"`
}

func (h *Handler) updateItems(w http.ResponseWriter, r *http.Request) {
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
	var req updateItemsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", err.Error()))
		return
	}

	order, err := h.service.UpdateItems(r.Context(), actor, id, UpdateItemsInput{
		Items:        toItemInputs(req.Items),
		DiscountPct:  req.DiscountPct,
		ShippingCost: req.ShippingCost,
	})
	if err != nil {
		h.logger.Warn("update order items failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=draft pending confirmed processing completed cancelled"`
	Notes  string `json:"notes"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
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
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", err.Error()))
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), actor, id, req.Status, req.Notes)
	if err != nil {
		h.logger.Warn("update order status failed",
			slog.String("order_id", id.String()),
			slog.String("to", string(req.Status)),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type recordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
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
	var req recordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", "invalid json"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.NewValidationError("body", err.Error()))
		return
	}

	order, err := h.service.RecordPayment(r.Context(), actor, id, req.Amount, req.Method, req.Reference)
	if err != nil {
		h.logger.Warn("record payment failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
