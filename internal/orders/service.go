package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow-io/stockflow/internal/catalog"
	"github.com/stockflow-io/stockflow/internal/shared"
)

// Coordinator applies the stock side effects of an order completion. The
// implementation lives in the fulfillment package and is injected so the
// order service stays free of stock concerns.
type Coordinator interface {
	Complete(ctx context.Context, order *Order, actor shared.Actor, notes string) error
}

// Service owns the order lifecycle.
type Service struct {
	repo        RepositoryPort
	directory   catalog.Directory
	coordinator Coordinator
	logger      *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, directory catalog.Directory, coordinator Coordinator, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: directory, coordinator: coordinator, logger: logger}
}

// CreateItemInput is one requested order line. UnitPrice nil means "use the
// directory default": product cost for purchases, selling price for sales.
type CreateItemInput struct {
	ProductID   uuid.UUID
	Quantity    int64
	UnitPrice   *decimal.Decimal
	DiscountPct decimal.Decimal
	TaxRatePct  decimal.Decimal
}

// CreateInput describes a new order.
type CreateInput struct {
	Type         OrderType
	SupplierID   *uuid.UUID
	Customer     *CustomerSnapshot
	Items        []CreateItemInput
	DiscountPct  decimal.Decimal
	ShippingCost decimal.Decimal
	Notes        string
}

// Create validates the input, snapshots products, assigns the order number
// and persists the order in draft status.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (*Order, error) {
	if input.Type != TypePurchase && input.Type != TypeSale {
		return nil, shared.NewValidationError("type", "must be purchase or sale")
	}
	if len(input.Items) == 0 {
		return nil, shared.NewValidationError("items", "at least one item is required")
	}
	if input.Type == TypePurchase && input.SupplierID == nil {
		return nil, shared.NewValidationError("supplier_id", "required for purchase orders")
	}
	if input.Type == TypeSale && (input.Customer == nil || input.Customer.Name == "") {
		return nil, shared.NewValidationError("customer", "required for sale orders")
	}

	items, err := s.resolveItems(ctx, actor.OrgID, input.Type, input.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &Order{
		ID:            uuid.New(),
		OrgID:         actor.OrgID,
		Type:          input.Type,
		SupplierID:    input.SupplierID,
		Customer:      input.Customer,
		Items:         items,
		DiscountPct:   input.DiscountPct,
		ShippingCost:  input.ShippingCost,
		Status:        StatusDraft,
		PaymentStatus: PaymentPending,
		PaidAmount:    decimal.Zero,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.RecomputeTotals()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextOrderNumber(ctx, actor.OrgID, input.Type, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		return tx.AppendStatusHistory(ctx, order.ID, StatusChange{
			Status:  StatusDraft,
			ActorID: actor.UserID,
			At:      now,
			Notes:   input.Notes,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return s.repo.Get(ctx, actor.OrgID, order.ID)
}

func (s *Service) resolveItems(ctx context.Context, orgID uuid.UUID, orderType OrderType, inputs []CreateItemInput) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(inputs))
	hundred := decimal.NewFromInt(100)
	for i, in := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		if in.Quantity < 1 {
			return nil, shared.NewValidationError(field+".quantity", "must be >= 1")
		}
		if in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(hundred) {
			return nil, shared.NewValidationError(field+".discount_pct", "must be between 0 and 100")
		}
		if in.TaxRatePct.IsNegative() || in.TaxRatePct.GreaterThan(hundred) {
			return nil, shared.NewValidationError(field+".tax_rate_pct", "must be between 0 and 100")
		}

		product, err := s.directory.Lookup(ctx, orgID, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", in.ProductID, err)
		}

		unitPrice := product.SellingPrice
		if orderType == TypePurchase {
			unitPrice = product.Cost
		}
		if in.UnitPrice != nil {
			if in.UnitPrice.IsNegative() {
				return nil, shared.NewValidationError(field+".unit_price", "must be >= 0")
			}
			unitPrice = *in.UnitPrice
		}

		items = append(items, OrderItem{
			ID:          uuid.New(),
			ProductID:   product.ID,
			Name:        product.Name,
			SKU:         product.SKU,
			Unit:        product.Unit,
			Quantity:    in.Quantity,
			UnitPrice:   unitPrice,
			DiscountPct: in.DiscountPct,
			TaxRatePct:  in.TaxRatePct,
			Position:    i + 1,
		})
	}
	return items, nil
}

// UpdateItemsInput replaces the order's lines and order-level charges.
type UpdateItemsInput struct {
	Items        []CreateItemInput
	DiscountPct  decimal.Decimal
	ShippingCost decimal.Decimal
}

// UpdateItems replaces items on an order still in draft or pending and
// recomputes totals.
func (s *Service) UpdateItems(ctx context.Context, actor shared.Actor, orderID uuid.UUID, input UpdateItemsInput) (*Order, error) {
	order, err := s.repo.Get(ctx, actor.OrgID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeModified() {
		return nil, &shared.InvalidTransitionError{From: string(order.Status)}
	}
	if len(input.Items) == 0 {
		return nil, shared.NewValidationError("items", "at least one item is required")
	}

	items, err := s.resolveItems(ctx, actor.OrgID, order.Type, input.Items)
	if err != nil {
		return nil, err
	}

	order.Items = items
	order.DiscountPct = input.DiscountPct
	order.ShippingCost = input.ShippingCost
	order.UpdatedAt = time.Now().UTC()
	order.RecomputeTotals()
	order.PaymentStatus = derivePaymentStatus(order.PaidAmount, order.Totals.Total)

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.ReplaceItems(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("update order items: %w", err)
	}
	return s.repo.Get(ctx, actor.OrgID, orderID)
}

// UpdateStatus validates the transition against the state machine and applies
// it. Transitions to completed run the fulfillment coordinator, which
// pre-validates stock availability before the status is durably committed.
func (s *Service) UpdateStatus(ctx context.Context, actor shared.Actor, orderID uuid.UUID, next Status, notes string) (*Order, error) {
	order, err := s.repo.Get(ctx, actor.OrgID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, &shared.InvalidTransitionError{From: string(order.Status), To: string(next)}
	}

	if next == StatusCompleted {
		if err := s.coordinator.Complete(ctx, order, actor, notes); err != nil {
			return nil, err
		}
		return s.repo.Get(ctx, actor.OrgID, orderID)
	}

	now := time.Now().UTC()
	order.Status = next
	order.UpdatedAt = now
	if next == StatusCancelled {
		order.CancelledAt = &now
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, order); err != nil {
			return err
		}
		return tx.AppendStatusHistory(ctx, order.ID, StatusChange{
			Status:  next,
			ActorID: actor.UserID,
			At:      now,
			Notes:   notes,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	return s.repo.Get(ctx, actor.OrgID, orderID)
}

// RecordPayment applies a payment and derives the payment status. Payments
// may never exceed the order total.
func (s *Service) RecordPayment(ctx context.Context, actor shared.Actor, orderID uuid.UUID, amount decimal.Decimal, method, reference string) (*Order, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("amount", "must be > 0")
	}

	order, err := s.repo.Get(ctx, actor.OrgID, orderID)
	if err != nil {
		return nil, err
	}
	newPaid := shared.Round2(order.PaidAmount.Add(amount))
	if newPaid.GreaterThan(order.Totals.Total) {
		return nil, &shared.ExceedsPaymentError{
			Paid:   order.PaidAmount,
			Amount: amount,
			Total:  order.Totals.Total,
		}
	}

	now := time.Now().UTC()
	order.PaidAmount = newPaid
	order.PaidAt = &now
	order.PaymentStatus = derivePaymentStatus(newPaid, order.Totals.Total)
	order.UpdatedAt = now

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePayment(ctx, order, method, reference)
	})
	if err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return s.repo.Get(ctx, actor.OrgID, orderID)
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*Order, error) {
	return s.repo.Get(ctx, actor.OrgID, orderID)
}

// List returns orders for the actor's organization.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter ListFilter) ([]Order, error) {
	return s.repo.List(ctx, actor.OrgID, filter)
}
